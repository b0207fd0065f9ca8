// Package store defines the persistence boundary the relay shares with the
// REST API: user lookups, server membership checks, and message inserts.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Message type tags persisted alongside chat messages.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// UserSummary is the public identity resolved at authentication time.
type UserSummary struct {
	ID   int64
	Name string
	Role string
}

// InsertMessageParams carries the fields persisted for a new chat message.
// FileURL is optional and stored as NULL when empty.
type InsertMessageParams struct {
	ServerID    int64
	UserID      int64
	Content     string
	MessageType string
	FileURL     string
}

// MessageRecord is the server-assigned portion of a persisted message.
type MessageRecord struct {
	ID        int64
	CreatedAt time.Time
}

// Store is the persistence collaborator consumed by the relay. Messages are
// append-only from the relay's side; edits and deletions happen through the
// REST surface as flag mutations on the same tables, so relay reads see
// their effects.
type Store interface {
	// FindActiveUserByID resolves an active user's public identity, or
	// ErrNotFound if the user does not exist or is deactivated.
	FindActiveUserByID(ctx context.Context, id int64) (UserSummary, error)
	// IsMember reports whether the user is a recorded member of the server.
	IsMember(ctx context.Context, serverID, userID int64) (bool, error)
	// InsertMessage persists a chat message and returns its assigned id and
	// creation timestamp.
	InsertMessage(ctx context.Context, params InsertMessageParams) (MessageRecord, error)
}
