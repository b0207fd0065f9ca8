// Package server implements the liveness sweep that probes idle connections
// and reclaims unresponsive ones.
package server

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically probes every live connection and terminates the ones
// that failed to acknowledge the previous probe. It is the sole mechanism
// for reclaiming half-open connections; a connection gets one full interval
// of grace between probe and termination.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
}

// NewSweeper creates a Sweeper ticking at the given interval. A
// non-positive interval falls back to 30 seconds.
func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
	}
}

// Run blocks, sweeping once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Liveness sweep running every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Liveness sweep stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep terminates connections that missed the previous probe and probes the
// rest. Termination goes through the same disconnect path as a
// client-initiated close.
func (s *Sweeper) sweep() {
	s.engine.Registry().ForEachClient(func(c *Client) {
		if !c.Alive() {
			log.Printf("Terminating unresponsive client %s (%s)", c.id, c.addr)
			s.engine.Disconnect(c)
			return
		}
		c.markProbed()
		c.Ping()
	})
}
