// Package server implements the token bucket guarding the inbound frame
// rate of each connection.
package server

import (
	"sync"
	"time"
)

// rateLimiter admits a burst of frames from a full bucket, then trickles
// tokens back at the configured refill rate.
type rateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	perSec   float64
	refilled time.Time
}

func newRateLimiter(burst int, refillInterval time.Duration) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	if refillInterval <= 0 {
		refillInterval = time.Second
	}

	return &rateLimiter{
		tokens:   float64(burst),
		burst:    float64(burst),
		perSec:   float64(burst) / refillInterval.Seconds(),
		refilled: time.Now(),
	}
}

// allow spends one token, reporting false when the bucket is empty.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(rl.refilled).Seconds(); elapsed > 0 {
		rl.tokens = min(rl.burst, rl.tokens+elapsed*rl.perSec)
	}
	rl.refilled = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
