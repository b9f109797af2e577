package room

import (
	"sort"

	"github.com/astralgames/doomdeal/internal/types"
)

// sortedSeats returns every seat currently occupied by a player, ascending.
func (r *Room) sortedSeats() []types.Seat {
	seats := make([]types.Seat, 0, len(r.players))
	for _, p := range r.players {
		seats = append(seats, p.Seat)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i] < seats[j] })
	return seats
}

// smallestFreeSeat returns the smallest non-negative integer not currently
// assigned to a player.
func (r *Room) smallestFreeSeat() types.Seat {
	used := make(map[types.Seat]bool, len(r.players))
	for _, p := range r.players {
		used[p.Seat] = true
	}
	for s := types.Seat(0); ; s++ {
		if !used[s] {
			return s
		}
	}
}

// nextAliveSeatClockwise returns the smallest alive seat strictly greater
// than from, wrapping to the smallest alive seat overall. alive must be
// sorted ascending. Returns (0, false) if alive is empty.
func nextAliveSeatClockwise(alive []types.Seat, from types.Seat) (types.Seat, bool) {
	if len(alive) == 0 {
		return 0, false
	}
	for _, s := range alive {
		if s > from {
			return s, true
		}
	}
	return alive[0], true
}

// intSlice converts a seat slice to plain ints for wire encoding.
func intSlice(seats []types.Seat) []int {
	out := make([]int, len(seats))
	for i, s := range seats {
		out[i] = int(s)
	}
	return out
}

// seatSetKeys returns the sorted keys of a seat set.
func seatSetKeys(set map[types.Seat]bool) []types.Seat {
	out := make([]types.Seat, 0, len(set))
	for s, present := range set {
		if present {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
