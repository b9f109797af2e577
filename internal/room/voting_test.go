package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralgames/doomdeal/internal/types"
)

func gameEndRoom(t *testing.T) (*Room, map[types.Seat]*fakeConn) {
	t.Helper()
	r, _, conns := fourPlayerRoom()
	for _, p := range r.players {
		p.Ready = true
	}
	require.NoError(t, r.startGame(r.hostID))
	r.game.aliveSeats = []types.Seat{0, 1}
	r.enterGameEnd()
	return r, conns
}

func TestVoteRematchOnlyValidDuringGameEnd(t *testing.T) {
	r, _, _ := fourPlayerRoom()
	var someone types.PlayerID
	for id := range r.players {
		someone = id
		break
	}
	err := r.handleVoteRematch(someone, true)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidAction, err.(*types.CodedError).Code)
}

func TestCheckRematchQuorumResolvesWhenAllConnectedVoteYes(t *testing.T) {
	r, conns := gameEndRoom(t)
	id0 := r.bySeat[0]
	id1 := r.bySeat[1]

	// Only seats 0 and 1 are alive but every seated player can still vote;
	// disconnect seats 2 and 3 so quorum only needs 0 and 1.
	r.players[r.bySeat[2]].conn = nil
	r.players[r.bySeat[3]].conn = nil

	require.NoError(t, r.handleVoteRematch(id0, true))
	assert.Equal(t, types.StatusInGame, r.status, "quorum not yet reached")

	require.NoError(t, r.handleVoteRematch(id1, true))
	assert.Equal(t, types.StatusLobby, r.status, "unanimous connected vote returns to lobby")
	assert.Nil(t, r.game)

	for _, seat := range []types.Seat{0, 1} {
		assert.False(t, r.players[r.bySeat[seat]].HasCheese)
		assert.True(t, r.players[r.bySeat[seat]].Alive)
	}
	_ = conns
}

func TestCheckRematchQuorumDoesNotResolveOnAnyNoVote(t *testing.T) {
	r, _ := gameEndRoom(t)
	id0 := r.bySeat[0]
	id1 := r.bySeat[1]
	r.players[r.bySeat[2]].conn = nil
	r.players[r.bySeat[3]].conn = nil

	require.NoError(t, r.handleVoteRematch(id0, true))
	require.NoError(t, r.handleVoteRematch(id1, false))
	assert.Equal(t, types.StatusInGame, r.status)
}

func TestConnectedSeatsShrinksAsPlayersDisconnect(t *testing.T) {
	r, _ := gameEndRoom(t)
	assert.Len(t, r.connectedSeats(), 4)

	r.players[r.bySeat[0]].conn = nil
	assert.Len(t, r.connectedSeats(), 3)
}
