package room

import (
	"time"

	"github.com/astralgames/doomdeal/internal/types"
)

// armTurnTimer (re-)schedules the single turn-deadline timer for the
// current turnSeat. The shorter DISCONNECTED_TURN_TIMEOUT applies whenever
// the turn owner currently lacks a live socket, including a mid-turn
// disconnect. Per P10, at most one turn timer is ever outstanding: stopping
// the old one and bumping the epoch makes any in-flight fire a no-op.
func (r *Room) armTurnTimer() {
	r.stopTurnTimer()

	d := r.cfg.DefaultTurnTimer
	if p := r.playerAtSeat(r.game.turnSeat); p == nil || !p.Connected() {
		d = r.cfg.DisconnectedTurnTimeout
	}

	r.turnEpoch++
	epoch := r.turnEpoch
	deadline := r.clock.Now().Add(d).UnixMilli()
	r.game.deadlineTs = &deadline
	r.turnTimer = r.clock.AfterFunc(d, func() {
		r.post(jobTurnTimerFire{Epoch: epoch})
	})
}

// armDisconnectedTurnTimer re-arms the turn timer after the active turn
// owner disconnects mid-TURNS. armTurnTimer already checks connectivity
// when picking the deadline duration, so disconnecting first and then
// re-arming naturally selects DISCONNECTED_TURN_TIMEOUT.
func (r *Room) armDisconnectedTurnTimer() {
	r.armTurnTimer()
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	if r.game != nil {
		r.game.deadlineTs = nil
	}
}

// handleTurnTimerFire synthesizes the deterministic default action — drink
// — on behalf of a turn owner who let the deadline lapse. A stale epoch
// (the turn already advanced, or the owner acted just before the fire was
// processed) makes this a no-op, which is how §5's race-free cancellation
// is realized: the fire is always observed through the same serialized
// queue as every other event.
func (r *Room) handleTurnTimerFire(epoch uint64) {
	if epoch != r.turnEpoch || r.game == nil || r.game.phase != types.PhaseTurns {
		return
	}
	if r.game.actedSeats[r.game.turnSeat] {
		return
	}
	r.performDrink(r.game.turnSeat)
}

// armDealerGrace starts the reconnect-timeout-length grace window during
// which a disconnected dealer's socket may rebind before the engine
// synthesizes a composition on their behalf.
func (r *Room) armDealerGrace() {
	r.dealerGraceEpoch++
	epoch := r.dealerGraceEpoch
	if r.dealerGraceTimer != nil {
		r.dealerGraceTimer.Stop()
	}
	r.dealerGraceTimer = r.clock.AfterFunc(r.cfg.ReconnectTimeout, func() {
		r.post(jobDealerGraceFire{Epoch: epoch})
	})
}

func (r *Room) handleDealerGraceFire(epoch uint64) {
	if epoch != r.dealerGraceEpoch || r.game == nil || r.game.phase != types.PhaseDealerSetup {
		return
	}
	dealer := r.playerAtSeat(r.game.dealerSeat)
	if dealer != nil && dealer.Connected() {
		return
	}
	r.commitComposition(r.synthesizeComposition())
}

// synthesizeComposition builds a random seat→card mapping that satisfies
// the ≥1 SAFE / ≥1 DOOM constraint, used when a disconnected dealer can't
// compose one themselves.
func (r *Room) synthesizeComposition() map[types.Seat]types.CardType {
	mapping := make(map[types.Seat]types.CardType, len(r.game.aliveSeats))
	doomSeat := r.randomAliveSeat()
	for _, seat := range r.game.aliveSeats {
		if seat == doomSeat {
			mapping[seat] = types.CardDoom
		} else {
			mapping[seat] = types.CardSafe
		}
	}
	if len(r.game.aliveSeats) == 1 {
		mapping[r.game.aliveSeats[0]] = types.CardDoom
	}
	return mapping
}

// armRevealGrace mirrors armDealerGrace for a dealer disconnected during
// AWAITING_REVEAL: the usual grace window before the engine auto-triggers
// the final reveal on their behalf.
func (r *Room) armRevealGrace() {
	r.revealGraceEpoch++
	epoch := r.revealGraceEpoch
	if r.revealGraceTimer != nil {
		r.revealGraceTimer.Stop()
	}
	r.revealGraceTimer = r.clock.AfterFunc(r.cfg.ReconnectTimeout, func() {
		r.post(jobRevealGraceFire{Epoch: epoch})
	})
}

func (r *Room) cancelRevealGrace() {
	if r.revealGraceTimer != nil {
		r.revealGraceTimer.Stop()
		r.revealGraceTimer = nil
	}
	r.revealGraceEpoch++
}

func (r *Room) handleRevealGraceFire(epoch uint64) {
	if epoch != r.revealGraceEpoch || r.game == nil || r.game.phase != types.PhaseAwaitReveal {
		return
	}
	dealer := r.playerAtSeat(r.game.dealerSeat)
	if dealer != nil && dealer.Connected() {
		return
	}
	r.enterFinalReveal()
}

// armPhaseTimer schedules a single transient phase-pacing timer (DEALING's
// hold, each FINAL_REVEAL step, ROUND_END's hold). build constructs the job
// to post back once the epoch it captures is current.
func (r *Room) armPhaseTimer(d time.Duration, build func(epoch uint64) job) {
	if r.phaseTimer != nil {
		r.phaseTimer.Stop()
	}
	r.phaseEpoch++
	epoch := r.phaseEpoch
	r.phaseTimer = r.clock.AfterFunc(d, func() {
		r.post(build(epoch))
	})
}
