package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralgames/doomdeal/internal/types"
)

func TestHandleJoinFirstPlayerBecomesHost(t *testing.T) {
	r, _ := newTestRoom()

	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	require.NoError(t, res.Err)
	assert.Equal(t, res.Player.ID, r.hostID)
	assert.False(t, res.IsReconnect)
}

func TestHandleJoinNameUniquenessIsCaseInsensitive(t *testing.T) {
	r, _ := newTestRoom()
	require.NoError(t, r.handleJoin(jobJoin{Name: "Alice", SessionID: "s1"}).Err)

	res := r.handleJoin(jobJoin{Name: "ALICE", SessionID: "s2"})
	require.Error(t, res.Err)
	assert.Equal(t, types.ErrNameTaken, res.Err.(*types.CodedError).Code)
}

func TestHandleJoinSameSessionReconnects(t *testing.T) {
	r, _ := newTestRoom()
	first := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	require.NoError(t, first.Err)

	second := r.handleJoin(jobJoin{Name: "alice-again", SessionID: "s1"})
	require.NoError(t, second.Err)
	assert.True(t, second.IsReconnect)
	assert.Equal(t, first.Token, second.Token)
	assert.Len(t, r.players, 1, "a reconnecting session must not occupy a second seat")
}

func TestHandleJoinRejectsSameSessionWhileStillConnected(t *testing.T) {
	r, _ := newTestRoom()
	first := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	require.NoError(t, first.Err)
	require.NoError(t, r.bindSocket(newFakeConn(), first.Token))

	res := r.handleJoin(jobJoin{Name: "alice-again", SessionID: "s1"})
	require.Error(t, res.Err)
	assert.Equal(t, types.ErrSessionAlreadyInRoom, res.Err.(*types.CodedError).Code)
	assert.Len(t, r.players, 1, "a shadowing join attempt must not touch the live player")
}

func TestHandleJoinRejectsWhenRoomFull(t *testing.T) {
	r, _ := newTestRoom()
	r.cfg.MaxPlayers = 2
	require.NoError(t, r.handleJoin(jobJoin{Name: "a", SessionID: "s1"}).Err)
	require.NoError(t, r.handleJoin(jobJoin{Name: "b", SessionID: "s2"}).Err)

	res := r.handleJoin(jobJoin{Name: "c", SessionID: "s3"})
	require.Error(t, res.Err)
	assert.Equal(t, types.ErrRoomFull, res.Err.(*types.CodedError).Code)
}

func TestHandleJoinRejectsOnceGameInProgress(t *testing.T) {
	r, _ := newTestRoom()
	require.NoError(t, r.handleJoin(jobJoin{Name: "a", SessionID: "s1"}).Err)
	r.status = types.StatusInGame

	res := r.handleJoin(jobJoin{Name: "b", SessionID: "s2"})
	require.Error(t, res.Err)
	assert.Equal(t, types.ErrGameInProgress, res.Err.(*types.CodedError).Code)
}

func TestBindSocketReplacesStaleConnection(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	require.NoError(t, res.Err)

	oldConn := newFakeConn()
	require.NoError(t, r.bindSocket(oldConn, res.Token))
	newConn := newFakeConn()
	require.NoError(t, r.bindSocket(newConn, res.Token))

	assert.True(t, oldConn.closed, "rebinding must close the stale socket")
	_, stillTracked := r.byConn[oldConn]
	assert.False(t, stillTracked)
}

func TestBindSocketRejectsUnknownToken(t *testing.T) {
	r, _ := newTestRoom()
	err := r.bindSocket(newFakeConn(), types.Token("bogus"))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidToken, err.(*types.CodedError).Code)
}

func TestSocketClosedInLobbyRemovesPlayerImmediately(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	conn := newFakeConn()
	require.NoError(t, r.bindSocket(conn, res.Token))

	r.handleSocketClosed(conn)
	assert.Empty(t, r.players, "LOBBY disconnect is immediate removal, not a grace window")
}

func TestSocketClosedDuringGameArmsReconnectGrace(t *testing.T) {
	r, clock, _ := fourPlayerRoom()
	for _, p := range r.players {
		p.Ready = true
	}
	require.NoError(t, r.startGame(r.hostID))

	var targetID types.PlayerID
	for id, p := range r.players {
		if p.Seat != r.game.dealerSeat {
			targetID = id
			break
		}
	}
	conn := r.players[targetID].conn.(*fakeConn)

	r.handleSocketClosed(conn)
	assert.Contains(t, r.players, targetID, "IN_GAME disconnect must not remove the player immediately")
	assert.NotNil(t, r.players[targetID].disconnectedAt)

	clock.fireAll()
	assert.NotContains(t, r.players, targetID, "reconnect grace expiry must evict the player")
}

func TestRemovePlayerPromotesEarliestJoinedAsHost(t *testing.T) {
	r, _ := newTestRoom()
	first := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	second := r.handleJoin(jobJoin{Name: "bob", SessionID: "s2"})

	r.removePlayer(first.Player.ID)
	assert.Equal(t, second.Player.ID, r.hostID)
}

func TestUpdateSettingsRequiresHostAndLobby(t *testing.T) {
	r, _ := newTestRoom()
	res := r.handleJoin(jobJoin{Name: "alice", SessionID: "s1"})
	other := r.handleJoin(jobJoin{Name: "bob", SessionID: "s2"})

	err := r.updateSettings(other.Player.ID, nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotHost, err.(*types.CodedError).Code)

	count := 2
	require.NoError(t, r.updateSettings(res.Player.ID, nil, &count))
	assert.Equal(t, 2, r.settings.CheeseCount)

	tooMany := r.cfg.MaxCheeseCount + 1
	err = r.updateSettings(res.Player.ID, nil, &tooMany)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, err.(*types.CodedError).Code)
}
