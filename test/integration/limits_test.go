package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalnetwork/relay/internal/server"
	"github.com/globalnetwork/relay/internal/store"
	"github.com/globalnetwork/relay/test/testhelpers"
)

// TestMessageRateLimiting drives a connection past its frame budget and
// verifies the excess frame is dropped outright: no broadcast reaches the
// room, no error reply reaches the sender, and the connection keeps working
// once tokens refill. The auth and join frames spend from the same budget,
// so the burst below covers the handshake plus two messages.
func TestMessageRateLimiting(t *testing.T) {
	const refillInterval = 2 * time.Second

	ts, _, st := newRelayServerWithConfig(t, func(cfg *server.Config) {
		cfg.RateLimit = server.RateLimitConfig{Burst: 4, RefillInterval: refillInterval}
	})

	st.AddUser(store.UserSummary{ID: 1, Name: "ada", Role: "member"})
	st.AddUser(store.UserSummary{ID: 2, Name: "grace", Role: "member"})
	st.AddMember(5, 1)
	st.AddMember(5, 2)

	sender := dialAndJoin(t, ts, 1, 5)
	receiver := dialAndJoin(t, ts, 2, 5)
	testhelpers.ExpectFrame(t, sender, "user_joined")

	// Two tokens remain after the handshake; the third message overdraws.
	testhelpers.SendFrame(t, sender, map[string]any{"type": "message", "content": "msg-0"})
	testhelpers.SendFrame(t, sender, map[string]any{"type": "message", "content": "msg-1"})
	testhelpers.SendFrame(t, sender, map[string]any{"type": "message", "content": "over-limit"})

	for _, content := range []string{"msg-0", "msg-1"} {
		frame := testhelpers.ExpectFrame(t, receiver, "new_message")
		assert.Equal(t, content, frame["message"].(map[string]any)["content"])
		frame = testhelpers.ExpectFrame(t, sender, "new_message")
		assert.Equal(t, content, frame["message"].(map[string]any)["content"])
	}

	testhelpers.ExpectNoFrame(t, receiver, 300*time.Millisecond)

	// The dropped frame produced no error reply and did not close the
	// connection: after a refill the next message goes straight through,
	// and its broadcast is the next frame the sender sees.
	time.Sleep(refillInterval/2 + 500*time.Millisecond)
	testhelpers.SendFrame(t, sender, map[string]any{"type": "message", "content": "after-refill"})
	frame := testhelpers.ExpectFrame(t, sender, "new_message")
	assert.Equal(t, "after-refill", frame["message"].(map[string]any)["content"])
}

// TestMessageSizeLimit verifies that a frame over the configured read limit
// tears the connection down through the normal disconnect path: nothing is
// dispatched to the room apart from the departure broadcast.
func TestMessageSizeLimit(t *testing.T) {
	const limit int64 = 512

	ts, _, st := newRelayServerWithConfig(t, func(cfg *server.Config) {
		cfg.MaxMessageSize = limit
	})

	st.AddUser(store.UserSummary{ID: 1, Name: "ada", Role: "member"})
	st.AddUser(store.UserSummary{ID: 2, Name: "grace", Role: "member"})
	st.AddMember(5, 1)
	st.AddMember(5, 2)

	sender := dialAndJoin(t, ts, 1, 5)
	receiver := dialAndJoin(t, ts, 2, 5)
	testhelpers.ExpectFrame(t, sender, "user_joined")

	oversized := strings.Repeat("A", int(limit)+100)
	err := sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","content":"`+oversized+`"}`))
	if err != nil {
		require.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig),
			"unexpected error writing oversized frame: %v", err)
	}

	// The room never sees the oversized message, only the departure the
	// forced disconnect broadcasts.
	frame := testhelpers.ExpectFrame(t, receiver, "user_left")
	assert.EqualValues(t, 1, frame["userId"])

	require.NoError(t, sender.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = sender.ReadMessage()
	assert.Error(t, err, "connection should be closed after an oversized frame")
}
