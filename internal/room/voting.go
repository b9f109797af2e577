package room

import (
	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/types"
)

// handleVoteRematch records or updates a connected seat's rematch vote and
// re-checks quorum. Any player, connected or not, may be recorded, but only
// connected seats count toward the quorum (see checkRematchQuorum).
func (r *Room) handleVoteRematch(callerID types.PlayerID, vote bool) error {
	p := r.players[callerID]
	if p == nil {
		return types.NewError(types.ErrNotInRoom, "not a player in this room")
	}
	if r.game == nil || r.game.phase != types.PhaseGameEnd {
		return types.NewError(types.ErrInvalidAction, "not in the rematch-voting phase")
	}
	r.game.votes[p.Seat] = vote
	r.broadcastVoteUpdate()
	r.checkRematchQuorum()
	return nil
}

// connectedSeats returns every seat whose player currently has a live
// socket. This is the voting quorum: it shrinks as players disconnect and
// grows as they rebind, per §4.5.
func (r *Room) connectedSeats() []types.Seat {
	out := make([]types.Seat, 0, len(r.players))
	for _, p := range r.players {
		if p.Connected() {
			out = append(out, p.Seat)
		}
	}
	return out
}

// checkRematchQuorum resolves the vote to STARTING once every connected
// seat has voted yes and at least one seat is connected. Called after any
// vote change or any connectivity change during GAME_END.
func (r *Room) checkRematchQuorum() {
	if r.game == nil || r.game.phase != types.PhaseGameEnd {
		return
	}
	connected := r.connectedSeats()
	if len(connected) == 0 {
		return
	}
	for _, seat := range connected {
		if !r.game.votes[seat] {
			return
		}
	}
	r.returnToLobby()
}

// returnToLobby discards GameState and resets the room to LOBBY, ready for
// a rematch: readiness, cheese, and aliveness are all reset. §4.5 has the
// engine announce STARTING before the room actually lands back in LOBBY.
func (r *Room) returnToLobby() {
	votedYes := make([]types.Seat, 0, len(r.game.votes))
	for seat, yes := range r.game.votes {
		if yes {
			votedYes = append(votedYes, seat)
		}
	}
	r.broadcastAll(codec.NewVoteUpdate(intSlice(votedYes), len(r.connectedSeats()), "STARTING"))

	for _, p := range r.players {
		p.Ready = false
		p.HasCheese = false
		p.Alive = true
	}
	r.status = types.StatusLobby
	r.game = nil
	r.cardBySeat = make(map[types.Seat]types.CardType)
	r.finalRevealOrder = nil
	r.finalRevealIdx = 0
	r.stopTurnTimer()
	r.broadcastLobbyUpdate()
}
