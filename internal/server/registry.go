// Package server coordinates connection registration, room indexing, and
// broadcast fan-out for the relay via the Registry type.
package server

import (
	"log"
	"sync"
)

// entry is the registry's own view of a connection's indexed identity and
// room. Entries are mutated only under the registry mutex, so handlers never
// reach into another connection's private state.
type entry struct {
	userID   int64
	serverID int64
}

// Registry tracks every live connection plus two derived indexes: by
// authenticated user id and by joined server id. It is the single
// serialization point for membership state; no other component mutates the
// indexes.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]*entry
	byUser  map[int64]map[*Client]struct{}
	byRoom  map[int64]map[*Client]struct{}
}

// NewRegistry creates an empty Registry ready to track connections.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]*entry),
		byUser:  make(map[int64]map[*Client]struct{}),
		byRoom:  make(map[int64]map[*Client]struct{}),
	}
}

// Register adds a newly accepted connection to the live set.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c] = &entry{}
	log.Printf("Client %s registered from %s. Total clients: %d", c.id, c.addr, len(r.clients))
}

// Unregister removes the connection from the live set and both indexes. It
// reports whether the connection was still present and, if so, the identity
// and server it was indexed under at removal time, so the caller can emit
// the departure broadcast exactly once. Safe to call repeatedly.
func (r *Registry) Unregister(c *Client) (userID, serverID int64, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.clients[c]
	if !ok {
		return 0, 0, false
	}

	delete(r.clients, c)
	removeFromIndex(r.byUser, e.userID, c)
	removeFromIndex(r.byRoom, e.serverID, c)
	log.Printf("Client %s unregistered from %s. Total clients: %d", c.id, c.addr, len(r.clients))
	return e.userID, e.serverID, true
}

// SetIdentity indexes the connection under its authenticated user id,
// replacing any previous identity index entry.
func (r *Registry) SetIdentity(c *Client, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.clients[c]
	if !ok {
		return
	}

	removeFromIndex(r.byUser, e.userID, c)
	e.userID = userID
	addToIndex(r.byUser, userID, c)
}

// SetRoom moves the connection between room buckets. A zero serverID clears
// the room index entry.
func (r *Registry) SetRoom(c *Client, serverID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.clients[c]
	if !ok {
		return
	}

	removeFromIndex(r.byRoom, e.serverID, c)
	e.serverID = serverID
	addToIndex(r.byRoom, serverID, c)
}

func addToIndex(index map[int64]map[*Client]struct{}, key int64, c *Client) {
	if key == 0 {
		return
	}
	bucket := index[key]
	if bucket == nil {
		bucket = make(map[*Client]struct{})
		index[key] = bucket
	}
	bucket[c] = struct{}{}
}

func removeFromIndex(index map[int64]map[*Client]struct{}, key int64, c *Client) {
	if key == 0 {
		return
	}
	bucket := index[key]
	if bucket == nil {
		return
	}
	delete(bucket, c)
	if len(bucket) == 0 {
		delete(index, key)
	}
}

// Broadcast delivers payload to every connection currently joined to
// serverID, except exclude when non-nil. Delivery is best effort: a receiver
// whose buffer is full or whose connection is closed is skipped, never
// awaited. Broadcasting to an empty room is a no-op.
func (r *Registry) Broadcast(serverID int64, payload []byte, exclude *Client) {
	if payload == nil || serverID == 0 {
		return
	}
	for _, c := range r.roomSnapshot(serverID) {
		if c == exclude {
			continue
		}
		c.TrySend(payload)
	}
}

// SendToUser delivers payload to every open connection authenticated as
// userID. A user with several simultaneous connections receives one copy per
// connection.
func (r *Registry) SendToUser(userID int64, payload []byte) {
	if payload == nil || userID == 0 {
		return
	}
	for _, c := range r.userSnapshot(userID) {
		c.TrySend(payload)
	}
}

// ForEachClient applies visitor to a point-in-time snapshot of the live set.
// The visitor runs without the registry lock held, so it may unregister
// connections.
func (r *Registry) ForEachClient(visitor func(*Client)) {
	r.mu.RLock()
	snapshot := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		visitor(c)
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll closes every live connection. Used during shutdown; the normal
// disconnect path then reclaims each registry entry as the pumps exit.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	snapshot := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		c.Close()
	}
	log.Printf("Closed %d client connections", len(snapshot))
}

func (r *Registry) roomSnapshot(serverID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.byRoom[serverID]
	snapshot := make([]*Client, 0, len(bucket))
	for c := range bucket {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

func (r *Registry) userSnapshot(userID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.byUser[userID]
	snapshot := make([]*Client, 0, len(bucket))
	for c := range bucket {
		snapshot = append(snapshot, c)
	}
	return snapshot
}
