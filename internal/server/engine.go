// Package server implements the relay engine: the per-connection protocol
// state machine that authenticates connections, validates inbound frames,
// persists messages, and fans broadcasts out through the registry.
package server

import (
	"context"
	"errors"
	"log"

	"github.com/globalnetwork/relay/internal/auth"
	"github.com/globalnetwork/relay/internal/store"
)

// TokenVerifier validates a bearer credential and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Engine owns the per-connection protocol. Each connection moves through
// unauthenticated, authenticated without a server, and authenticated with a
// server; frames invalid for the current state are answered with an error
// frame and leave the state unchanged.
type Engine struct {
	registry *Registry
	verifier TokenVerifier
	store    store.Store
}

// NewEngine creates an Engine backed by the given registry, token verifier,
// and persistence store.
func NewEngine(registry *Registry, verifier TokenVerifier, st store.Store) *Engine {
	return &Engine{
		registry: registry,
		verifier: verifier,
		store:    st,
	}
}

// Registry exposes the engine's registry for the liveness sweep and shutdown
// coordination.
func (e *Engine) Registry() *Registry { return e.registry }

// Accept registers a newly upgraded connection and starts its pumps.
func (e *Engine) Accept(c *Client) {
	e.registry.Register(c)
	c.Start()
}

// HandleFrame decodes and dispatches one inbound frame. It is invoked only
// from the owning connection's read pump, so session state never races with
// itself. A frame that fails to decode yields an error reply and leaves the
// connection state untouched.
func (e *Engine) HandleFrame(c *Client, raw []byte) {
	frame, err := decodeFrame(raw)
	if err != nil {
		log.Printf("Invalid frame from %s: %v", c.addr, err)
		c.TrySend(errorFrame("Invalid message format"))
		return
	}

	ctx := context.Background()

	switch frame.Type {
	case FrameAuth:
		e.handleAuth(ctx, c, frame)
	case FrameJoinServer:
		e.handleJoinServer(ctx, c, frame)
	case FrameLeaveServer:
		e.handleLeaveServer(c)
	case FrameMessage:
		e.handleMessage(ctx, c, frame)
	case FrameTyping:
		e.handleTyping(c, frame)
	default:
		c.TrySend(errorFrame("Unknown message type"))
	}
}

// handleAuth verifies the bearer token, resolves the user through the store,
// and on success populates the connection's identity and indexes it for
// direct pushes. Failures keep the connection open and unauthenticated.
func (e *Engine) handleAuth(ctx context.Context, c *Client, frame *InboundFrame) {
	if frame.Token == "" {
		c.TrySend(authErrorFrame("Token required"))
		return
	}

	claims, err := e.verifier.Verify(frame.Token)
	if err != nil {
		log.Printf("Auth error for %s: %v", c.addr, err)
		c.TrySend(authErrorFrame("Authentication failed"))
		return
	}

	user, err := e.store.FindActiveUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.TrySend(authErrorFrame("User not found"))
			return
		}
		log.Printf("Auth lookup error for %s: %v", c.addr, err)
		c.TrySend(authErrorFrame("Authentication failed"))
		return
	}

	c.authenticated = true
	c.userID = user.ID
	c.userName = user.Name
	c.userRole = user.Role
	e.registry.SetIdentity(c, user.ID)

	c.TrySend(authSuccessFrame(wireUser{ID: user.ID, Name: user.Name, Role: user.Role}))
}

// handleJoinServer verifies membership against the store on every attempt
// (never cached) and on success indexes the connection under the room and
// announces the arrival to its peers.
func (e *Engine) handleJoinServer(ctx context.Context, c *Client, frame *InboundFrame) {
	if !c.authenticated {
		c.TrySend(errorFrame("Not authenticated"))
		return
	}

	// A missing or zero serverId is not special-cased: the membership check
	// cannot find a record for it, so the caller gets the same refusal as any
	// other non-member.
	member, err := e.store.IsMember(ctx, frame.ServerID, c.userID)
	if err != nil {
		log.Printf("Join server error for %s: %v", c.addr, err)
		c.TrySend(errorFrame("Failed to join server"))
		return
	}
	if !member {
		c.TrySend(errorFrame("Not a member of this server"))
		return
	}

	c.serverID = frame.ServerID
	e.registry.SetRoom(c, frame.ServerID)

	c.TrySend(joinedServerFrame(frame.ServerID))
	e.registry.Broadcast(frame.ServerID, userJoinedFrame(c.userID, c.userName), c)
}

// handleLeaveServer announces the departure to room peers and clears the
// room. A leave with no room set is a silent no-op.
func (e *Engine) handleLeaveServer(c *Client) {
	if c.serverID == 0 {
		return
	}

	e.registry.Broadcast(c.serverID, userLeftFrame(c.userID, c.userName), c)

	c.serverID = 0
	e.registry.SetRoom(c, 0)
	c.TrySend(leftServerFrame())
}

// handleMessage persists the message and broadcasts it to the whole room,
// sender included: the sender learns the server-assigned id and timestamp
// through the broadcast rather than a direct reply.
func (e *Engine) handleMessage(ctx context.Context, c *Client, frame *InboundFrame) {
	if !c.authenticated || c.serverID == 0 {
		c.TrySend(errorFrame("Not authenticated or not in a server"))
		return
	}

	messageType := frame.MessageType
	if messageType == "" {
		messageType = store.MessageTypeText
	}

	record, err := e.store.InsertMessage(ctx, store.InsertMessageParams{
		ServerID:    c.serverID,
		UserID:      c.userID,
		Content:     frame.Content,
		MessageType: messageType,
		FileURL:     frame.FileURL,
	})
	if err != nil {
		log.Printf("Message persist error for %s: %v", c.addr, err)
		c.TrySend(errorFrame("Failed to send message"))
		return
	}

	e.registry.Broadcast(c.serverID, newMessageFrame(wireMessage{
		ID:          record.ID,
		ServerID:    c.serverID,
		UserID:      c.userID,
		UserName:    c.userName,
		UserRole:    c.userRole,
		Content:     frame.Content,
		MessageType: messageType,
		FileURL:     frame.FileURL,
		CreatedAt:   record.CreatedAt,
	}), nil)
}

// handleTyping relays a typing indicator to room peers. Unlike the other
// gated operations it is silently ignored when preconditions are unmet.
func (e *Engine) handleTyping(c *Client, frame *InboundFrame) {
	if !c.authenticated || c.serverID == 0 {
		return
	}

	e.registry.Broadcast(c.serverID, typingFrame(c.userID, c.userName, frame.IsTyping), c)
}

// Disconnect runs the single cleanup path shared by client-initiated closes
// and liveness-sweep terminations. The first caller wins; later calls are
// no-ops, so the departure broadcast fires at most once per connection.
func (e *Engine) Disconnect(c *Client) {
	userID, serverID, present := e.registry.Unregister(c)
	if !present {
		return
	}

	if serverID != 0 {
		e.registry.Broadcast(serverID, userLeftFrame(userID, ""), nil)
	}

	c.Close()
}

// PushNotification delivers a live notification frame to every connection
// authenticated as userID. It is the one entry point the REST layer calls
// into the relay; delivery is fire and forget.
func (e *Engine) PushNotification(userID int64, notification any) {
	e.registry.SendToUser(userID, notificationFrame(notification))
}
