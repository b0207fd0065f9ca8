// Package testhelpers provides common utilities and helper functions for
// testing the relay.
//
// It contains the in-memory persistence fake shared by integration tests,
// token minting helpers, and WebSocket dial/read utilities that reduce
// duplication across test files.
package testhelpers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/globalnetwork/relay/internal/auth"
	"github.com/globalnetwork/relay/internal/store"
)

// JWTSecret signs the tokens minted for integration tests.
const JWTSecret = "integration-test-secret"

// MemoryStore is an in-memory implementation of store.Store for tests that
// exercise the relay without a database.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[int64]store.UserSummary
	members   map[int64]map[int64]bool
	nextID    int64
	insertErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]store.UserSummary),
		members: make(map[int64]map[int64]bool),
		nextID:  1000,
	}
}

// AddUser records an active user.
func (m *MemoryStore) AddUser(user store.UserSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// AddMember records a server membership, as the REST API would out-of-band.
func (m *MemoryStore) AddMember(serverID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[serverID] == nil {
		m.members[serverID] = make(map[int64]bool)
	}
	m.members[serverID][userID] = true
}

// FailInserts makes subsequent InsertMessage calls return err.
func (m *MemoryStore) FailInserts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertErr = err
}

func (m *MemoryStore) FindActiveUserByID(_ context.Context, id int64) (store.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return store.UserSummary{}, store.ErrNotFound
	}
	return user, nil
}

func (m *MemoryStore) IsMember(_ context.Context, serverID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[serverID][userID], nil
}

func (m *MemoryStore) InsertMessage(_ context.Context, _ store.InsertMessageParams) (store.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return store.MessageRecord{}, m.insertErr
	}
	m.nextID++
	return store.MessageRecord{ID: m.nextID, CreatedAt: time.Now().UTC()}, nil
}

// MintToken signs a token for userID the way the REST API's login endpoint
// does, valid for one hour.
func MintToken(t *testing.T, userID int64) string {
	t.Helper()

	now := time.Now()
	claims := auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}
	return token
}

// WebSocketURL converts a test server base URL into its ws:// endpoint.
func WebSocketURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
}

// DialWebSocket opens a WebSocket connection to the test server with the
// given Origin header and registers cleanup.
func DialWebSocket(t *testing.T, ts *httptest.Server, origin string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(WebSocketURL(ts.URL), header)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// SendFrame marshals v and writes it as one text frame.
func SendFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()

	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// ReadFrame reads one frame and decodes it into a generic map.
func ReadFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Failed to decode frame %s: %v", payload, err)
	}
	return decoded
}

// ExpectFrame reads one frame and fails unless its type matches.
func ExpectFrame(t *testing.T, conn *websocket.Conn, frameType string) map[string]any {
	t.Helper()

	frame := ReadFrame(t, conn)
	if frame["type"] != frameType {
		t.Fatalf("Expected frame type %q, got %v", frameType, frame)
	}
	return frame
}

// ExpectNoFrame fails if a frame arrives within timeout.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no frame, but received %s", payload)
	}
}
