package room

import (
	"time"

	"github.com/astralgames/doomdeal/internal/types"
)

// Player is a room's view of one seated identity. It is only ever read or
// mutated from the room's own goroutine.
type Player struct {
	ID        types.PlayerID
	Name      string
	AvatarID  int
	Seat      types.Seat
	Alive     bool
	Ready     bool
	HasCheese bool

	SessionID types.SessionID
	Token     types.Token
	JoinedAt  time.Time

	conn           types.Conn
	disconnectedAt *time.Time
}

// Connected reports whether the player currently has a live socket bound.
func (p *Player) Connected() bool {
	return p.conn != nil
}

// Settings is the room's configurable ruleset.
type Settings struct {
	TurnTimerSeconds int
	CheeseEnabled    bool
	CheeseCount      int
}
