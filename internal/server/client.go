// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client represents one live WebSocket connection to the relay. Session
// state (authenticated, identity, joined server) is owned by the read pump
// and is never mutated from any other goroutine; the registry keeps its own
// indexed view for broadcast routing.
type Client struct {
	id     string
	conn   *websocket.Conn
	engine *Engine
	send   chan []byte
	addr   string

	mu     sync.Mutex
	closed bool

	// alive is cleared before each liveness probe and set again by the pong
	// handler; it is the only session field read outside the read pump.
	alive atomic.Bool

	// Session state, owned by the read pump.
	authenticated bool
	userID        int64
	userName      string
	userRole      string
	serverID      int64

	maxMessageSize int64
	pongWait       time.Duration
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a new Client for the provided WebSocket connection. The
// send channel is buffered so broadcasts never block on a slow receiver.
func NewClient(conn *websocket.Conn, engine *Engine, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	c := &Client{
		id:             uuid.NewString(),
		conn:           conn,
		engine:         engine,
		send:           make(chan []byte, cfg.SendBufferSize),
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		pongWait:       2 * cfg.HeartbeatInterval,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
	c.alive.Store(true)
	return c
}

// ID returns the process-unique connection handle.
func (c *Client) ID() string { return c.id }

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// TrySend queues payload for delivery without blocking. It reports false if
// the connection is closed or its buffer is full; callers treat both as a
// skipped best-effort delivery.
func (c *Client) TrySend(payload []byte) bool {
	if payload == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close marks the client closed and tears down its transport, sending the
// close handshake to the peer before the underlying connection goes away.
// Safe to call from any goroutine and more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s: %v", c.addr, err)
		}
	}
}

// Alive reports whether a heartbeat acknowledgment arrived since the last
// probe.
func (c *Client) Alive() bool { return c.alive.Load() }

// markProbed clears the liveness flag ahead of a probe.
func (c *Client) markProbed() { c.alive.Store(false) }

// Ping sends a ping control frame. WriteControl may be called concurrently
// with the write pump per the gorilla contract, so the liveness sweep can
// probe without routing through the send buffer.
func (c *Client) Ping() {
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing ping to %s: %v", c.addr, err)
		}
	}
}

// setupReadConnection configures the read deadline and the pong handler that
// refreshes the liveness flag.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// checkRateLimit reports whether the next frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d frames per %s); discarding frame", c.addr, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// readPump reads frames from the connection and dispatches them, strictly in
// order, into the engine. Frames from one connection are never handled
// concurrently with each other.
func (c *Client) readPump() {
	defer c.engine.Disconnect(c)

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.engine.HandleFrame(c, raw)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Frame from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		log.Printf("Client %s connection closed: %v", c.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// writePump drains the send channel onto the connection. It exits when the
// channel is closed by Close, which also owns the close handshake, or when a
// write fails.
func (c *Client) writePump() {
	defer c.Close()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Error setting write deadline for %s: %v", c.addr, err)
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error writing message to %s: %v", c.addr, err)
			}
			return
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
