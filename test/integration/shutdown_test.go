package integration

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalnetwork/relay/internal/store"
)

// TestCloseAllDisconnectsClients verifies that draining the registry during
// shutdown closes every live connection from the server side.
func TestCloseAllDisconnectsClients(t *testing.T) {
	ts, engine, st := newRelayServer(t)

	st.AddUser(store.UserSummary{ID: 1, Name: "ada", Role: "member"})
	st.AddMember(5, 1)

	conn := dialAndJoin(t, ts, 1, 5)
	require.Equal(t, 1, engine.Registry().Count())

	engine.Registry().CloseAll()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure),
		"peer should observe a normal close handshake, got %v", err)
	assert.Eventually(t, func() bool {
		return engine.Registry().Count() == 0
	}, 2*time.Second, 10*time.Millisecond, "registry should drain as the pumps exit")
}
