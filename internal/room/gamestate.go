package room

import "github.com/astralgames/doomdeal/internal/types"

// GameState holds everything that exists only while status = IN_GAME.
type GameState struct {
	phase        types.Phase
	dealerSeat   types.Seat
	turnSeat     types.Seat
	roundIndex   int
	roundsPlayed int

	// pendingDealerSeat holds the next round's dealer between ROUND_END and
	// the hold-expiry that actually rotates into it.
	pendingDealerSeat types.Seat

	aliveSeats    []types.Seat // sorted ascending
	facedownSeats map[types.Seat]bool
	actedSeats    map[types.Seat]bool

	deadlineTs *int64 // absolute ms timestamp; nil when no active deadline

	cheeseSeats map[types.Seat]bool

	// dealerPreview tracks which seats the dealer has (boolean-only)
	// previewed an assignment for this round, cleared at commit.
	dealerPreview map[types.Seat]bool

	// votes holds the rematch vote cast by each connected seat during
	// GAME_END. Cleared on returnToLobby.
	votes map[types.Seat]bool
}

func newGameState() *GameState {
	return &GameState{
		facedownSeats: make(map[types.Seat]bool),
		actedSeats:    make(map[types.Seat]bool),
		cheeseSeats:   make(map[types.Seat]bool),
		dealerPreview: make(map[types.Seat]bool),
		votes:         make(map[types.Seat]bool),
	}
}

func (g *GameState) isAlive(seat types.Seat) bool {
	for _, s := range g.aliveSeats {
		if s == seat {
			return true
		}
	}
	return false
}

func (g *GameState) removeAlive(seat types.Seat) {
	out := g.aliveSeats[:0]
	for _, s := range g.aliveSeats {
		if s != seat {
			out = append(out, s)
		}
	}
	g.aliveSeats = out
}
