package room

import (
	"crypto/rand"
	"math/big"

	"github.com/astralgames/doomdeal/internal/metrics"
	"github.com/astralgames/doomdeal/internal/types"
)

// startGame transitions LOBBY → DEALER_SETUP. Caller must be host and
// canStartGame must already hold.
func (r *Room) startGame(callerID types.PlayerID) error {
	if callerID != r.hostID {
		return types.NewError(types.ErrNotHost, "only the host may start the game")
	}
	if err := r.canStartGame(); err != nil {
		return err
	}

	for _, p := range r.players {
		p.Alive = true
		p.HasCheese = false
	}

	r.status = types.StatusInGame
	r.game = newGameState()
	r.game.aliveSeats = r.sortedSeats()
	r.game.dealerSeat = r.randomAliveSeat()
	r.game.phase = types.PhaseDealerSetup
	r.cardBySeat = make(map[types.Seat]types.CardType)

	metrics.RoundsTotal.Inc()
	r.broadcastPhase()
	return nil
}

func (r *Room) randomAliveSeat() types.Seat {
	n := len(r.game.aliveSeats)
	if n == 0 {
		return 0
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return r.game.aliveSeats[0]
	}
	return r.game.aliveSeats[idx.Int64()]
}

func (r *Room) playerAtSeat(seat types.Seat) *Player {
	id, ok := r.bySeat[seat]
	if !ok {
		return nil
	}
	return r.players[id]
}

// handleDealerSet validates and commits the dealer's composition for the
// round, or rejects it with no state change.
func (r *Room) handleDealerSet(callerID types.PlayerID, composition []types.CardType) error {
	if r.game == nil {
		return types.NewError(types.ErrInvalidAction, "not accepting a composition right now")
	}
	p := r.players[callerID]
	if p == nil || p.Seat != r.game.dealerSeat {
		return types.NewError(types.ErrNotDealer, "only the dealer may set the composition")
	}
	if r.game.phase != types.PhaseDealerSetup {
		return types.NewError(types.ErrInvalidAction, "not accepting a composition right now")
	}
	if len(composition) != len(r.game.aliveSeats) {
		return types.NewError(types.ErrMissingAssignments, "composition must cover every alive seat")
	}
	hasSafe, hasDoom := false, false
	for _, c := range composition {
		switch c {
		case types.CardSafe:
			hasSafe = true
		case types.CardDoom:
			hasDoom = true
		default:
			return types.NewError(types.ErrInvalidComposition, "composition must contain only SAFE or DOOM")
		}
	}
	if !hasSafe || !hasDoom {
		return types.NewError(types.ErrInvalidComposition, "composition must contain at least one SAFE and one DOOM")
	}

	mapping := make(map[types.Seat]types.CardType, len(composition))
	for i, seat := range r.game.aliveSeats {
		mapping[seat] = composition[i]
	}
	r.commitComposition(mapping)
	return nil
}

// commitComposition writes cardBySeat, distributes cheese, and enters
// DEALING. Used both by an accepted DEALER_SET and by the disconnected-
// dealer auto-compose path.
func (r *Room) commitComposition(mapping map[types.Seat]types.CardType) {
	r.cardBySeat = mapping
	r.game.facedownSeats = make(map[types.Seat]bool, len(r.game.aliveSeats))
	for _, s := range r.game.aliveSeats {
		r.game.facedownSeats[s] = true
	}
	r.game.actedSeats = make(map[types.Seat]bool)
	r.game.dealerPreview = make(map[types.Seat]bool)
	r.distributeCheese()

	r.game.phase = types.PhaseDealing
	r.broadcastDealt()
	r.broadcastPhase()

	r.armPhaseTimer(r.cfg.PerRevealDuration, func(epoch uint64) job { return jobDealingAdvance{Epoch: epoch} })
}

// distributeCheese runs exactly once per round, at composition commit time.
func (r *Room) distributeCheese() {
	for _, p := range r.players {
		p.HasCheese = false
	}
	r.game.cheeseSeats = make(map[types.Seat]bool)
	if !r.settings.CheeseEnabled || len(r.game.aliveSeats) < 3 {
		return
	}
	count := r.settings.CheeseCount
	if count > len(r.game.aliveSeats)-1 {
		count = len(r.game.aliveSeats) - 1
	}
	if count <= 0 {
		return
	}

	pool := append([]types.Seat(nil), r.game.aliveSeats...)
	for i := len(pool) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			break
		}
		pool[i], pool[j.Int64()] = pool[j.Int64()], pool[i]
	}
	for _, seat := range pool[:count] {
		r.game.cheeseSeats[seat] = true
		if p := r.playerAtSeat(seat); p != nil {
			p.HasCheese = true
		}
	}
	r.broadcastCheeseUpdate()
}

// handleDealingAdvance fires once the visual hold for DEALING elapses.
func (r *Room) handleDealingAdvance(epoch uint64) {
	if r.phaseEpoch != epoch || r.game == nil || r.game.phase != types.PhaseDealing {
		return
	}
	r.enterTurns()
}

func (r *Room) enterTurns() {
	next, ok := nextAliveSeatClockwise(r.game.aliveSeats, r.game.dealerSeat)
	if !ok || next == r.game.dealerSeat {
		r.enterAwaitingReveal()
		return
	}
	r.game.phase = types.PhaseTurns
	r.game.turnSeat = next
	r.armTurnTimer()
	r.broadcastPhase()
}

func (r *Room) handleDealerPreview(callerID types.PlayerID, seat types.Seat, cardType *types.CardType) error {
	if r.game == nil {
		return types.NewError(types.ErrInvalidAction, "preview is only valid during dealer setup")
	}
	p := r.players[callerID]
	if p == nil || p.Seat != r.game.dealerSeat {
		return types.NewError(types.ErrNotDealer, "only the dealer may preview")
	}
	if r.game.phase != types.PhaseDealerSetup {
		return types.NewError(types.ErrInvalidAction, "preview is only valid during dealer setup")
	}
	r.game.dealerPreview[seat] = cardType != nil
	r.broadcastDealerPreview(seat, cardType != nil)
	return nil
}

func (r *Room) requireTurnOwner(callerID types.PlayerID) (*Player, error) {
	p := r.players[callerID]
	if p == nil {
		return nil, types.NewError(types.ErrNotInRoom, "not a player in this room")
	}
	if r.game == nil || r.game.phase != types.PhaseTurns {
		return nil, types.NewError(types.ErrInvalidAction, "it is not the turn phase")
	}
	if p.Seat != r.game.turnSeat {
		return nil, types.NewError(types.ErrNotYourTurn, "it is not your turn")
	}
	if r.game.actedSeats[p.Seat] {
		return nil, types.NewError(types.ErrAlreadyActed, "already acted this round")
	}
	return p, nil
}

func (r *Room) handleDrink(callerID types.PlayerID) error {
	p, err := r.requireTurnOwner(callerID)
	if err != nil {
		return err
	}
	r.performDrink(p.Seat)
	return nil
}

// performDrink is shared by the player-initiated ACTION_DRINK and the
// turn-timeout synthesized default.
func (r *Room) performDrink(seat types.Seat) {
	r.game.actedSeats[seat] = true
	r.revealSeat(seat)
	metrics.TurnsTotal.WithLabelValues("drink").Inc()
	r.advanceTurn(seat)
}

func (r *Room) handleSwap(callerID types.PlayerID, target types.Seat) error {
	p, err := r.requireTurnOwner(callerID)
	if err != nil {
		return err
	}
	if target == p.Seat || !r.game.isAlive(target) || !r.game.facedownSeats[target] {
		return types.NewError(types.ErrInvalidTarget, "target must be a different facedown alive seat")
	}

	r.cardBySeat[p.Seat], r.cardBySeat[target] = r.cardBySeat[target], r.cardBySeat[p.Seat]
	r.game.actedSeats[p.Seat] = true
	r.broadcastSwap(p.Seat, target)
	metrics.TurnsTotal.WithLabelValues("swap").Inc()
	r.advanceTurn(p.Seat)
	return nil
}

func (r *Room) handleStealCheese(callerID types.PlayerID, target types.Seat) error {
	p, err := r.requireTurnOwner(callerID)
	if err != nil {
		return err
	}
	if !r.settings.CheeseEnabled {
		return types.NewError(types.ErrInvalidAction, "cheese variant is not enabled")
	}
	if p.HasCheese {
		return types.NewError(types.ErrAlreadyHasCheese, "you already hold cheese")
	}
	if target == p.Seat || !r.game.isAlive(target) || !r.game.cheeseSeats[target] {
		return types.NewError(types.ErrNoCheeseToSteal, "target does not hold cheese")
	}

	delete(r.game.cheeseSeats, target)
	r.game.cheeseSeats[p.Seat] = true
	if tp := r.playerAtSeat(target); tp != nil {
		tp.HasCheese = false
	}
	p.HasCheese = true
	r.game.actedSeats[p.Seat] = true

	r.broadcastCheeseStolen(p.Seat, target)
	r.broadcastCheeseUpdate()
	metrics.TurnsTotal.WithLabelValues("steal_cheese").Inc()
	r.advanceTurn(p.Seat)
	return nil
}

// advanceTurn moves turnSeat to the next alive, non-dealer, not-yet-acted
// seat clockwise from from. A full lap with no eligible seat transitions to
// AWAITING_REVEAL.
func (r *Room) advanceTurn(from types.Seat) {
	seat := from
	for i := 0; i < len(r.game.aliveSeats); i++ {
		next, ok := nextAliveSeatClockwise(r.game.aliveSeats, seat)
		if !ok || next == r.game.dealerSeat {
			r.enterAwaitingReveal()
			return
		}
		if !r.game.actedSeats[next] {
			r.game.turnSeat = next
			r.armTurnTimer()
			r.broadcastPhase()
			return
		}
		seat = next
	}
	r.enterAwaitingReveal()
}

func (r *Room) enterAwaitingReveal() {
	r.stopTurnTimer()
	r.game.phase = types.PhaseAwaitReveal
	r.game.deadlineTs = nil
	r.broadcastPhase()

	dealer := r.playerAtSeat(r.game.dealerSeat)
	if dealer == nil || !dealer.Connected() {
		r.armRevealGrace()
	}
}

func (r *Room) handleStartReveal(callerID types.PlayerID) error {
	if r.game == nil {
		return types.NewError(types.ErrInvalidAction, "not awaiting reveal")
	}
	p := r.players[callerID]
	if p == nil || p.Seat != r.game.dealerSeat {
		return types.NewError(types.ErrNotDealer, "only the dealer may start the reveal")
	}
	if r.game.phase != types.PhaseAwaitReveal {
		return types.NewError(types.ErrInvalidAction, "not awaiting reveal")
	}
	r.enterFinalReveal()
	return nil
}

func (r *Room) enterFinalReveal() {
	r.cancelRevealGrace()
	r.game.phase = types.PhaseFinalReveal
	r.finalRevealOrder = seatSetKeys(r.game.facedownSeats)
	r.finalRevealIdx = 0
	r.broadcastPhase()
	r.stepFinalReveal()
}

func (r *Room) stepFinalReveal() {
	if r.finalRevealIdx >= len(r.finalRevealOrder) {
		r.checkRoundEnd()
		return
	}
	seat := r.finalRevealOrder[r.finalRevealIdx]
	r.finalRevealIdx++
	r.revealSeat(seat)
	r.armPhaseTimer(r.cfg.PerRevealDuration, func(epoch uint64) job { return jobFinalRevealStep{Epoch: epoch} })
}

func (r *Room) handleFinalRevealStep(epoch uint64) {
	if r.phaseEpoch != epoch || r.game == nil || r.game.phase != types.PhaseFinalReveal {
		return
	}
	r.stepFinalReveal()
}

// revealSeat applies cheese-inverted elimination for one seat and emits the
// REVEAL and, if applicable, ELIM events.
func (r *Room) revealSeat(seat types.Seat) {
	card := r.cardBySeat[seat]
	delete(r.game.facedownSeats, seat)
	r.broadcastReveal(seat, card)

	eliminated := (card == types.CardDoom) != r.game.cheeseSeats[seat]
	outcome := "survived"
	if eliminated {
		outcome = "eliminated"
		r.game.removeAlive(seat)
		if p := r.playerAtSeat(seat); p != nil {
			p.Alive = false
		}
		r.broadcastElim(seat)
	}
	metrics.RevealsTotal.WithLabelValues(outcome).Inc()
}

func (r *Room) checkRoundEnd() {
	if len(r.game.aliveSeats) <= 1 {
		r.enterGameEnd()
		return
	}
	r.enterRoundEnd()
}

func (r *Room) enterRoundEnd() {
	nextDealer, ok := nextAliveSeatClockwise(r.game.aliveSeats, r.game.dealerSeat)
	if !ok {
		nextDealer = r.game.dealerSeat
	}
	r.game.phase = types.PhaseRoundEnd
	r.game.pendingDealerSeat = nextDealer
	r.game.roundsPlayed++
	r.broadcastRoundEnd(nextDealer)
	r.armPhaseTimer(r.cfg.PerRevealDuration, func(epoch uint64) job { return jobRoundEndAdvance{Epoch: epoch} })
}

func (r *Room) handleRoundEndAdvance(epoch uint64) {
	if r.phaseEpoch != epoch || r.game == nil || r.game.phase != types.PhaseRoundEnd {
		return
	}
	r.game.roundIndex++
	r.game.dealerSeat = r.game.pendingDealerSeat
	r.game.phase = types.PhaseDealerSetup
	r.broadcastPhase()
}

// onPlayerGoneDuringGame repairs state-machine invariants after a seat is
// fully vacated (voluntary leave or reconnect-grace expiry) while a game is
// in progress. removePlayer has already dropped the seat from aliveSeats.
func (r *Room) onPlayerGoneDuringGame(seat types.Seat, wasDealer, wasTurn bool) {
	if len(r.game.aliveSeats) <= 1 && r.game.phase != types.PhaseGameEnd {
		r.enterGameEnd()
		return
	}

	switch r.game.phase {
	case types.PhaseDealerSetup:
		if wasDealer {
			r.reassignDealer(seat)
		}
	case types.PhaseTurns:
		if wasDealer {
			r.reassignDealer(seat)
		}
		if wasTurn {
			r.advanceTurn(seat)
		}
	case types.PhaseAwaitReveal:
		if wasDealer {
			r.cancelRevealGrace()
			r.enterFinalReveal()
		}
	case types.PhaseRoundEnd:
		if r.game.pendingDealerSeat == seat {
			next, ok := nextAliveSeatClockwise(r.game.aliveSeats, seat)
			if ok {
				r.game.pendingDealerSeat = next
			}
		}
	case types.PhaseGameEnd:
		r.checkRematchQuorum()
	}
}

// reassignDealer picks the next alive seat clockwise from the departed
// dealer's old seat number and announces the new phase state.
func (r *Room) reassignDealer(oldDealerSeat types.Seat) {
	next, ok := nextAliveSeatClockwise(r.game.aliveSeats, oldDealerSeat)
	if !ok {
		return
	}
	r.game.dealerSeat = next
	r.game.dealerPreview = make(map[types.Seat]bool)
	r.broadcastPhase()
}

func (r *Room) enterGameEnd() {
	r.game.phase = types.PhaseGameEnd
	r.game.votes = make(map[types.Seat]bool)
	var winner *int
	if len(r.game.aliveSeats) == 1 {
		w := int(r.game.aliveSeats[0])
		winner = &w
	}
	r.broadcastGameEnd(winner)
}
