package room

import (
	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/types"
)

// job is the union of everything that can arrive on a room's mailbox:
// client intents, socket lifecycle notifications, and synthetic events
// from timers. Exactly one goroutine (Room.run) ever reads this channel,
// which is what lets the rest of the package mutate state without locks.
type job interface{ isRoomJob() }

// joinResult is the synchronous reply to a jobJoin.
type joinResult struct {
	Player     Player
	Token      types.Token
	IsReconnect bool
	Err        error
}

// jobJoin models both RoomRegistry.createRoom's implicit first join and
// RoomRegistry.joinRoom: session-based reconnection, name uniqueness, and
// seat allocation all happen inside this single handler so they observe a
// consistent snapshot of room membership.
type jobJoin struct {
	Name      string
	AvatarID  int
	SessionID types.SessionID
	Reply     chan joinResult
}

func (jobJoin) isRoomJob() {}

// jobBindSocket attaches a live socket to an already-registered player
// identified by a token the registry has already validated belongs to
// this room. Reply carries the assigned seat for the STATE snapshot.
type jobBindSocket struct {
	Conn  types.Conn
	Token types.Token
	Reply chan error
}

func (jobBindSocket) isRoomJob() {}

// jobIntent is a parsed, structurally-valid client intent routed from an
// already-bound socket.
type jobIntent struct {
	Conn   types.Conn
	Intent *codec.Intent
}

func (jobIntent) isRoomJob() {}

// jobSocketClosed notifies the room that a bound socket's transport layer
// observed a close (error, heartbeat failure, or clean close).
type jobSocketClosed struct {
	Conn types.Conn
}

func (jobSocketClosed) isRoomJob() {}

// jobTurnTimerFire is the synthetic event a turn deadline timer posts back
// onto the mailbox. epoch must match the room's current turn epoch or the
// fire is a stale no-op.
type jobTurnTimerFire struct {
	Epoch uint64
}

func (jobTurnTimerFire) isRoomJob() {}

// jobDealerGraceFire fires when a disconnected dealer's grace window in
// DEALER_SETUP expires, prompting an auto-composed deal.
type jobDealerGraceFire struct {
	Epoch uint64
}

func (jobDealerGraceFire) isRoomJob() {}

// jobRevealGraceFire fires when the dealer is disconnected in
// AWAITING_REVEAL and the grace window to auto-trigger reveal expires.
type jobRevealGraceFire struct {
	Epoch uint64
}

func (jobRevealGraceFire) isRoomJob() {}

// jobReconnectGraceFire fires when a disconnected player's reconnect
// window (§4.2) expires.
type jobReconnectGraceFire struct {
	PlayerID types.PlayerID
	Epoch    uint64
}

func (jobReconnectGraceFire) isRoomJob() {}

// jobFinalRevealStep advances FINAL_REVEAL by one seat; the room re-arms
// itself on a ticker-like chain of these rather than precomputing every
// ELIM up front, so each step still flows through the serialized mailbox.
type jobFinalRevealStep struct {
	Epoch uint64
}

func (jobFinalRevealStep) isRoomJob() {}

// jobRoundEndAdvance fires after the ROUND_END hold to start the next
// DEALER_SETUP.
type jobRoundEndAdvance struct {
	Epoch uint64
}

func (jobRoundEndAdvance) isRoomJob() {}

// jobDealingAdvance fires after DEALING's visual hold to enter TURNS.
type jobDealingAdvance struct {
	Epoch uint64
}

func (jobDealingAdvance) isRoomJob() {}

// jobShutdown asks the room to stop its loop after draining in-flight work.
type jobShutdown struct {
	Reply chan struct{}
}

func (jobShutdown) isRoomJob() {}

// jobSnapshot is used by the registry's reap sweep to read membership
// without touching Room fields directly.
type jobSnapshot struct {
	Reply chan RoomSnapshot
}

func (jobSnapshot) isRoomJob() {}

// RoomSnapshot is a read-only copy of what the registry needs to decide
// whether a room is empty and safe to reap.
type RoomSnapshot struct {
	PlayerCount int
	HostID      types.PlayerID
}
