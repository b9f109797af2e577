package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralgames/doomdeal/internal/registry"
	"github.com/astralgames/doomdeal/internal/room"
	"github.com/astralgames/doomdeal/internal/types"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	cfg := room.Config{
		DefaultTurnTimer:        30 * time.Second,
		DisconnectedTurnTimeout: 5 * time.Second,
		ReconnectTimeout:        60 * time.Second,
		PerRevealDuration:       900 * time.Millisecond,
		DefaultCheeseCount:      2,
		MaxCheeseCount:          3,
		MaxPlayers:              8,
	}
	reg := registry.New(cfg, time.Hour)
	t.Cleanup(func() { reg.Shutdown(context.Background()) })
	return reg
}

func testWSServer(t *testing.T, reg *registry.Registry) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	srv := NewServer(reg, []string{"http://allowed.example"})
	router.GET("/ws", func(c *gin.Context) { srv.ServeWs(c) })
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeWsJoinWithValidTokenReceivesState(t *testing.T) {
	reg := testRegistry(t)
	_, _, token, err := reg.CreateRoom("alice", 0, types.SessionID("s1"))
	require.NoError(t, err)

	ts := testWSServer(t, reg)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"op": "JOIN", "token": string(token), "name": "alice"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "STATE", msg["op"])
}

func TestServeWsUnknownTokenReceivesError(t *testing.T) {
	reg := testRegistry(t)
	ts := testWSServer(t, reg)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"op": "JOIN", "token": "bogus-token", "name": "alice"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ERROR", msg["op"])
	assert.Equal(t, string(types.ErrInvalidToken), msg["code"])
}

func TestServeWsIntentBeforeJoinReceivesNotInRoomError(t *testing.T) {
	reg := testRegistry(t)
	ts := testWSServer(t, reg)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"op": "READY", "ready": true}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ERROR", msg["op"])
	assert.Equal(t, string(types.ErrNotInRoom), msg["code"])
}

func TestServeWsMalformedFrameReceivesInvalidMessageError(t *testing.T) {
	reg := testRegistry(t)
	ts := testWSServer(t, reg)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ERROR", msg["op"])
}

func TestErrorEventForWrapsPlainErrorAsInvalidMessage(t *testing.T) {
	ev := errorEventFor(assert.AnError)
	assert.Equal(t, string(types.ErrInvalidMessage), ev.Code)
}

func TestErrorEventForPreservesCodedError(t *testing.T) {
	ev := errorEventFor(types.NewError(types.ErrInvalidToken, "nope"))
	assert.Equal(t, string(types.ErrInvalidToken), ev.Code)
	assert.Equal(t, "nope", ev.Message)
}
