package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/metrics"
	"github.com/astralgames/doomdeal/internal/types"
)

// Config is the subset of internal/config.Config a room needs, copied in
// at construction time so the room never reaches back into the global
// config package.
type Config struct {
	DefaultTurnTimer         time.Duration
	DisconnectedTurnTimeout  time.Duration
	ReconnectTimeout         time.Duration
	PerRevealDuration        time.Duration
	DefaultCheeseCount       int
	MaxCheeseCount           int
	MaxPlayers               int
}

// Room owns one game's entire mutable state. Every field below is touched
// only from the goroutine running Run; callers interact exclusively through
// the channel-based public API (Join, BindSocket, HandleIntent, ...), which
// mirrors the teacher's hub-per-room actor but swaps the hub's broadcast-only
// mailbox for a request/reply job queue so HTTP-triggered operations (room
// creation, REST join) can still observe a result synchronously.
type Room struct {
	ID       types.RoomID
	JoinCode types.JoinCode

	cfg Config

	hostID   types.PlayerID
	status   types.RoomStatus
	settings Settings
	players  map[types.PlayerID]*Player
	bySeat   map[types.Seat]types.PlayerID
	byToken  map[types.Token]types.PlayerID
	byConn   map[types.Conn]types.PlayerID

	createdAt time.Time

	game       *GameState
	cardBySeat map[types.Seat]types.CardType

	inbox chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	clock Clock

	turnTimer  Timer
	turnEpoch  uint64

	dealerGraceTimer Timer
	dealerGraceEpoch uint64

	revealGraceTimer Timer
	revealGraceEpoch uint64

	phaseTimer  Timer
	phaseEpoch  uint64

	graceTimers map[types.PlayerID]Timer
	graceEpoch  map[types.PlayerID]uint64

	finalRevealOrder []types.Seat
	finalRevealIdx   int

	onEmpty func(types.RoomID)
}

// NewRoom constructs a room in StatusLobby with no players. onEmpty is
// invoked (from the room's own goroutine, so it must not block) whenever
// the last player leaves, letting the registry reap it.
func NewRoom(id types.RoomID, code types.JoinCode, cfg Config, onEmpty func(types.RoomID)) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		ID:       id,
		JoinCode: code,
		cfg:      cfg,
		status:   types.StatusLobby,
		settings: Settings{
			TurnTimerSeconds: int(cfg.DefaultTurnTimer / time.Second),
			CheeseEnabled:    cfg.DefaultCheeseCount > 0,
			CheeseCount:      cfg.DefaultCheeseCount,
		},
		players:     make(map[types.PlayerID]*Player),
		bySeat:      make(map[types.Seat]types.PlayerID),
		byToken:     make(map[types.Token]types.PlayerID),
		byConn:      make(map[types.Conn]types.PlayerID),
		createdAt:   time.Now(),
		cardBySeat:  make(map[types.Seat]types.CardType),
		inbox:       make(chan job, 64),
		ctx:         ctx,
		cancel:      cancel,
		clock:       realClock{},
		graceTimers: make(map[types.PlayerID]Timer),
		graceEpoch:  make(map[types.PlayerID]uint64),
		onEmpty:     onEmpty,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// run is the single consumer of r.inbox. All state mutation happens here.
func (r *Room) run() {
	defer r.wg.Done()
	for {
		select {
		case j, ok := <-r.inbox:
			if !ok {
				return
			}
			r.dispatch(j)
		case <-r.ctx.Done():
			r.drainAndStop()
			return
		}
	}
}

// drainAndStop flushes any jobs already queued (mainly outstanding reply
// channels) before the goroutine exits, so callers blocked on a reply never
// hang past Shutdown.
func (r *Room) drainAndStop() {
	for {
		select {
		case j := <-r.inbox:
			r.failJob(j)
		default:
			return
		}
	}
}

func (r *Room) failJob(j job) {
	switch v := j.(type) {
	case jobJoin:
		v.Reply <- joinResult{Err: types.NewError(types.ErrRoomClosed, "room is shutting down")}
	case jobBindSocket:
		v.Reply <- types.NewError(types.ErrRoomClosed, "room is shutting down")
	case jobSnapshot:
		close(v.Reply)
	case jobShutdown:
		close(v.Reply)
	}
}

func (r *Room) dispatch(j job) {
	switch v := j.(type) {
	case jobJoin:
		v.Reply <- r.handleJoin(v)
	case jobBindSocket:
		v.Reply <- r.handleBindSocket(v)
	case jobIntent:
		r.handleIntent(v.Conn, v.Intent)
	case jobSocketClosed:
		r.handleSocketClosed(v.Conn)
	case jobTurnTimerFire:
		r.handleTurnTimerFire(v.Epoch)
	case jobDealerGraceFire:
		r.handleDealerGraceFire(v.Epoch)
	case jobRevealGraceFire:
		r.handleRevealGraceFire(v.Epoch)
	case jobReconnectGraceFire:
		r.handleReconnectGraceFire(v.PlayerID, v.Epoch)
	case jobFinalRevealStep:
		r.handleFinalRevealStep(v.Epoch)
	case jobRoundEndAdvance:
		r.handleRoundEndAdvance(v.Epoch)
	case jobDealingAdvance:
		r.handleDealingAdvance(v.Epoch)
	case jobSnapshot:
		v.Reply <- r.snapshot()
		close(v.Reply)
	case jobShutdown:
		close(v.Reply)
	default:
		logging.Warn(r.ctx, "room received unknown job type", zap.String("room_id", string(r.ID)))
	}
}

func (r *Room) snapshot() RoomSnapshot {
	return RoomSnapshot{PlayerCount: len(r.players), HostID: r.hostID}
}

// post enqueues a job, returning false if the room has already shut down.
func (r *Room) post(j job) bool {
	select {
	case r.inbox <- j:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Join is the synchronous entry point used by both the HTTP room-creation
// path (first join becomes host) and the REST join-by-code path. It blocks
// until the room's goroutine has processed the join.
func (r *Room) Join(name string, avatarID int, sessionID types.SessionID) (Player, types.Token, bool, error) {
	reply := make(chan joinResult, 1)
	if !r.post(jobJoin{Name: name, AvatarID: avatarID, SessionID: sessionID, Reply: reply}) {
		return Player{}, "", false, types.NewError(types.ErrRoomClosed, "room no longer exists")
	}
	res := <-reply
	return res.Player, res.Token, res.IsReconnect, res.Err
}

// BindSocket attaches a live websocket connection to the player owning
// token. Called by the transport layer once it has read and validated the
// first JOIN frame.
func (r *Room) BindSocket(conn types.Conn, token types.Token) error {
	reply := make(chan error, 1)
	if !r.post(jobBindSocket{Conn: conn, Token: token, Reply: reply}) {
		return types.NewError(types.ErrRoomClosed, "room no longer exists")
	}
	return <-reply
}

// HandleIntent routes a parsed intent into the room's mailbox. Fire and
// forget: responses/errors are delivered asynchronously as wire events on
// conn, matching the teacher's hub.broadcast / client.send split.
func (r *Room) HandleIntent(conn types.Conn, intent *codec.Intent) {
	r.post(jobIntent{Conn: conn, Intent: intent})
}

// HandleSocketClosed notifies the room that conn's transport has closed.
func (r *Room) HandleSocketClosed(conn types.Conn) {
	r.post(jobSocketClosed{Conn: conn})
}

// Snapshot returns a point-in-time read of membership, used by the
// registry's reap sweep. Returns a zero-value snapshot if the room has
// already shut down.
func (r *Room) Snapshot() RoomSnapshot {
	reply := make(chan RoomSnapshot, 1)
	if !r.post(jobSnapshot{Reply: reply}) {
		return RoomSnapshot{}
	}
	snap, ok := <-reply
	if !ok {
		return RoomSnapshot{}
	}
	return snap
}

// Shutdown cancels the room's context and waits for its goroutine to exit.
func (r *Room) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		metrics.ActiveRooms.Dec()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
