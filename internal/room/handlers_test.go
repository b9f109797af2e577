package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/types"
)

func TestHandleIntentRejectsUnboundSocketExceptJoin(t *testing.T) {
	r, _ := newTestRoom()
	conn := newFakeConn()

	r.handleIntent(conn, &codec.Intent{Op: codec.OpReady, Ready: true})
	require.Equal(t, "ERROR", conn.lastOp())
	ev := conn.events()[len(conn.events())-1]
	assert.Equal(t, string(types.ErrNotInRoom), ev["code"])
}

func TestHandleIntentPingRepliesWithPongAndPreservesT(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	require.NoError(t, res.Err)
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	r.handleIntent(conn, &codec.Intent{Op: codec.OpPing, T: 42})
	ev := conn.events()[len(conn.events())-1]
	assert.Equal(t, "PONG", ev["op"])
	assert.EqualValues(t, 42, ev["t"])
}

func TestHandleIntentUnknownOpReportsErrorWithoutMutatingState(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	r.handleIntent(conn, &codec.Intent{Op: codec.Op("NOT_A_REAL_OP")})
	ev := conn.events()[len(conn.events())-1]
	assert.Equal(t, "ERROR", ev["op"])
	assert.Equal(t, string(types.ErrUnknownOp), ev["code"])
	assert.Len(t, r.players, 1, "an unrecognized op must never remove or add players")
}

func TestHandleIntentReadyTogglesPlayerReadiness(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	r.handleIntent(conn, &codec.Intent{Op: codec.OpReady, Ready: true})
	assert.True(t, r.players[res.Player.ID].Ready)

	r.handleIntent(conn, &codec.Intent{Op: codec.OpReady, Ready: false})
	assert.False(t, r.players[res.Player.ID].Ready)
}

func TestHandleIntentDealerSetDuringLobbyReportsInvalidActionInsteadOfPanicking(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	assert.NotPanics(t, func() {
		r.handleIntent(conn, &codec.Intent{
			Op:          codec.OpDealerSet,
			Composition: []types.CardType{types.CardSafe, types.CardDoom},
		})
	})
	ev := conn.events()[len(conn.events())-1]
	assert.Equal(t, "ERROR", ev["op"])
	assert.Equal(t, string(types.ErrInvalidAction), ev["code"])
}

func TestHandleIntentStartReveaDuringLobbyReportsInvalidActionInsteadOfPanicking(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	assert.NotPanics(t, func() {
		r.handleIntent(conn, &codec.Intent{Op: codec.OpStartReveal})
	})
	ev := conn.events()[len(conn.events())-1]
	assert.Equal(t, "ERROR", ev["op"])
	assert.Equal(t, string(types.ErrInvalidAction), ev["code"])
}

func TestHandleIntentStartGameSurfacesCodedErrorToCaller(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	r.handleIntent(conn, &codec.Intent{Op: codec.OpStartGame})
	ev := conn.events()[len(conn.events())-1]
	assert.Equal(t, "ERROR", ev["op"])
	assert.Equal(t, string(types.ErrNotEnoughPlayers), ev["code"])
}

func TestHandleIntentLeaveRoomRemovesPlayer(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	r.handleIntent(conn, &codec.Intent{Op: codec.OpLeaveRoom})
	assert.Empty(t, r.players)
}
