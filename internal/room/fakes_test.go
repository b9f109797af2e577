package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/astralgames/doomdeal/internal/types"
)

// fakeTimer is a Timer that only records whether it was stopped; firing is
// driven explicitly by the test via the fakeClock that created it.
type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
	fire    func()
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

// fakeClock lets tests fire armed timers deterministically instead of
// sleeping on wall-clock durations.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fire: f}
	c.timers = append(c.timers, t)
	return t
}

// fireAll invokes every still-armed timer's callback exactly once, in the
// order they were scheduled, then clears the roster.
func (c *fakeClock) fireAll() {
	c.mu.Lock()
	pending := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range pending {
		t.mu.Lock()
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			t.fire()
		}
	}
}

// fireLast invokes only the most recently armed timer, the common case when
// a test wants to simulate exactly one deadline lapsing.
func (c *fakeClock) fireLast() {
	c.mu.Lock()
	if len(c.timers) == 0 {
		c.mu.Unlock()
		return
	}
	t := c.timers[len(c.timers)-1]
	c.timers = c.timers[:len(c.timers)-1]
	c.mu.Unlock()
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.fire()
	}
}

// fakeConn is a types.Conn that records every frame sent to it instead of
// writing to a real socket.
type fakeConn struct {
	mu     sync.Mutex
	id     types.PlayerID
	sent   [][]byte
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{} }

func (c *fakeConn) PlayerID() types.PlayerID { return c.id }

func (c *fakeConn) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) events() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.sent))
	for _, raw := range c.sent {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) lastOp() string {
	ev := c.events()
	if len(ev) == 0 {
		return ""
	}
	op, _ := ev[len(ev)-1]["op"].(string)
	return op
}

func (c *fakeConn) ops() []string {
	ev := c.events()
	out := make([]string, 0, len(ev))
	for _, e := range ev {
		if op, ok := e["op"].(string); ok {
			out = append(out, op)
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		DefaultTurnTimer:        30 * time.Second,
		DisconnectedTurnTimeout: 5 * time.Second,
		ReconnectTimeout:        60 * time.Second,
		PerRevealDuration:       900 * time.Millisecond,
		DefaultCheeseCount:      2,
		MaxCheeseCount:          3,
		MaxPlayers:              8,
	}
}

// newTestRoom builds a Room wired to a fakeClock, bypassing NewRoom's
// goroutine startup so tests can call handler methods directly on the test
// goroutine without racing Room.run.
func newTestRoom() (*Room, *fakeClock) {
	clock := newFakeClock()
	r := &Room{
		ID:          types.RoomID("room-1"),
		JoinCode:    types.JoinCode("ABCDEF"),
		cfg:         testConfig(),
		status:      types.StatusLobby,
		settings:    Settings{TurnTimerSeconds: 30, CheeseEnabled: true, CheeseCount: 2},
		players:     make(map[types.PlayerID]*Player),
		bySeat:      make(map[types.Seat]types.PlayerID),
		byToken:     make(map[types.Token]types.PlayerID),
		byConn:      make(map[types.Conn]types.PlayerID),
		cardBySeat:  make(map[types.Seat]types.CardType),
		clock:       clock,
		graceTimers: make(map[types.PlayerID]Timer),
		graceEpoch:  make(map[types.PlayerID]uint64),
	}
	return r, clock
}

// seatPlayer directly seats a player without going through handleJoin's
// mailbox plumbing, for tests that only care about state-machine behavior.
func seatPlayer(r *Room, name string, seat types.Seat, host bool) (*Player, *fakeConn) {
	id := types.PlayerID(name)
	token := types.Token(name + "-token")
	conn := newFakeConn()
	conn.id = id
	p := &Player{
		ID:       id,
		Name:     name,
		Seat:     seat,
		Alive:    true,
		Token:    token,
		JoinedAt: time.Now(),
		conn:     conn,
	}
	r.players[id] = p
	r.bySeat[seat] = id
	r.byToken[token] = id
	r.byConn[conn] = id
	if host {
		r.hostID = id
	}
	return p, conn
}
