package room

import (
	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/metrics"
	"github.com/astralgames/doomdeal/internal/types"
)

// handleIntent is the single entry point every client intent passes
// through once its socket is bound. It resolves the caller from conn,
// dispatches by Op, and reports any *types.CodedError back to the sender
// only — illegal intents never mutate state (§7 propagation policy).
func (r *Room) handleIntent(conn types.Conn, intent *codec.Intent) {
	timer := metrics.IntentProcessingDuration.WithLabelValues(string(intent.Op))
	start := r.clock.Now()
	defer func() {
		timer.Observe(r.clock.Now().Sub(start).Seconds())
	}()

	id, ok := r.byConn[conn]
	if !ok && intent.Op != codec.OpJoin {
		r.sendError(conn, types.NewError(types.ErrNotInRoom, "socket is not bound to a player"))
		return
	}

	var err error
	switch intent.Op {
	case codec.OpJoin:
		// The HTTP surface already minted the token; this frame just binds
		// the socket to the player who holds it. Call the unexported
		// bindSocket directly rather than the public BindSocket: we are
		// already running on the room's own goroutine, so going through
		// the job-and-reply channel here would deadlock against ourselves.
		err = r.bindSocket(conn, types.Token(intent.Token))
	case codec.OpReady:
		r.setReady(id, intent.Ready)
	case codec.OpStartGame:
		err = r.startGame(id)
	case codec.OpUpdateSettings:
		err = r.updateSettings(id, intent.Settings.CheeseEnabled, intent.Settings.CheeseCount)
	case codec.OpActionDrink:
		err = r.handleDrink(id)
	case codec.OpActionSwap:
		err = r.handleSwap(id, intent.TargetSeat)
	case codec.OpActionStealCheese:
		err = r.handleStealCheese(id, intent.TargetSeat)
	case codec.OpDealerSet:
		err = r.handleDealerSet(id, intent.Composition)
	case codec.OpDealerPreview:
		err = r.handleDealerPreview(id, intent.Seat, intent.CardType)
	case codec.OpStartReveal:
		err = r.handleStartReveal(id)
	case codec.OpVoteRematch:
		err = r.handleVoteRematch(id, intent.Vote)
	case codec.OpLeaveRoom:
		r.handlePlayerLeave(id)
	case codec.OpPing:
		r.send(conn, codec.NewPong(intent.T))
	default:
		err = types.NewError(types.ErrUnknownOp, "unrecognized op")
	}

	if err != nil {
		coded, ok := err.(*types.CodedError)
		if !ok {
			coded = types.NewError(types.ErrInvalidRequest, err.Error())
		}
		r.sendError(conn, coded)
		logging.Info(r.ctx, "intent rejected",
			zap.String("room_id", string(r.ID)), zap.String("op", string(intent.Op)), zap.String("code", string(coded.Code)))
	}
}

// handlePlayerLeave removes a player by their own request. Per the decided
// Open Question, this is terminal: the same session cannot rejoin this
// room afterward.
func (r *Room) handlePlayerLeave(id types.PlayerID) {
	r.removePlayer(id)
}
