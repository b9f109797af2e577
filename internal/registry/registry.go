// Package registry owns the process-wide bookkeeping that spans rooms: the
// roomId/joinCode/token indices, join-code generation with collision
// checking, and the periodic sweep that reaps empty rooms. Everything
// inside one Room is the room package's own business; this package never
// reaches into a Room's internals except through its exported API.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/idgen"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/metrics"
	"github.com/astralgames/doomdeal/internal/room"
	"github.com/astralgames/doomdeal/internal/types"
)

// tokenBinding records which room a bearer token belongs to, so the
// transport layer can resolve a raw JOIN token to a Room without the room
// package needing to know about tokens issued before it existed.
type tokenBinding struct {
	roomID types.RoomID
}

// Registry is the single process-wide mutable structure described in §5;
// its three maps are guarded by one mutex, matching the teacher's registry
// pattern of a coarse lock around rarely-contended bookkeeping rather than
// per-map locks.
type Registry struct {
	mu sync.Mutex

	rooms       map[types.RoomID]*room.Room
	byJoinCode  map[types.JoinCode]types.RoomID
	tokens      map[types.Token]tokenBinding

	cfg room.Config

	reapInterval time.Duration
	stopReap     chan struct{}
	reapDone     chan struct{}
}

// New constructs an empty registry and starts its background reap sweep.
func New(cfg room.Config, reapInterval time.Duration) *Registry {
	reg := &Registry{
		rooms:        make(map[types.RoomID]*room.Room),
		byJoinCode:   make(map[types.JoinCode]types.RoomID),
		tokens:       make(map[types.Token]tokenBinding),
		cfg:          cfg,
		reapInterval: reapInterval,
		stopReap:     make(chan struct{}),
		reapDone:     make(chan struct{}),
	}
	go reg.reapLoop()
	return reg
}

// CreateRoom creates a new room in LOBBY with hostName as its first (host)
// player, mirroring §4.1's createRoom.
func (reg *Registry) CreateRoom(hostName string, avatarID int, sessionID types.SessionID) (types.RoomID, types.JoinCode, types.Token, error) {
	reg.mu.Lock()
	id := idgen.NewRoomID()
	code := reg.generateUniqueJoinCode()
	r := room.NewRoom(id, code, reg.cfg, reg.onRoomEmpty)
	reg.rooms[id] = r
	reg.byJoinCode[code] = id
	reg.mu.Unlock()

	metrics.ActiveRooms.Inc()

	_, token, _, err := r.Join(hostName, avatarID, sessionID)
	if err != nil {
		reg.mu.Lock()
		delete(reg.rooms, id)
		delete(reg.byJoinCode, code)
		reg.mu.Unlock()
		return "", "", "", err
	}

	reg.mu.Lock()
	reg.tokens[token] = tokenBinding{roomID: id}
	reg.mu.Unlock()
	metrics.ActiveTokens.Inc()

	logging.Info(context.Background(), "room created", zap.String("room_id", string(id)), zap.String("join_code", string(code)))
	return id, code, token, nil
}

// JoinRoom looks a room up by its human-typed join code and attempts to
// seat or reconnect name/sessionID into it, per §4.1.
func (reg *Registry) JoinRoom(joinCode string, name string, avatarID int, sessionID types.SessionID) (types.RoomID, types.Token, bool, error) {
	reg.mu.Lock()
	id, ok := reg.byJoinCode[types.JoinCode(strings.ToUpper(joinCode))]
	r := reg.rooms[id]
	reg.mu.Unlock()
	if !ok || r == nil {
		return "", "", false, types.NewError(types.ErrRoomNotFound, "no room with that join code")
	}

	_, token, isReconnect, err := r.Join(name, avatarID, sessionID)
	if err != nil {
		return "", "", false, err
	}

	reg.mu.Lock()
	if _, exists := reg.tokens[token]; !exists {
		metrics.ActiveTokens.Inc()
	}
	reg.tokens[token] = tokenBinding{roomID: id}
	reg.mu.Unlock()

	return id, token, isReconnect, nil
}

// ResolveToken returns the Room a bearer token is bound to, for the
// transport layer to route an inbound JOIN frame. Implements
// transport.RegistryLookup structurally.
func (reg *Registry) ResolveToken(token types.Token) (*room.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	b, ok := reg.tokens[token]
	if !ok {
		return nil, false
	}
	r, ok := reg.rooms[b.roomID]
	return r, ok
}

// generateUniqueJoinCode regenerates on collision with any live room, per
// §4.1 and invariant 8. Caller must hold reg.mu.
func (reg *Registry) generateUniqueJoinCode() types.JoinCode {
	for {
		code := idgen.NewJoinCode()
		if _, exists := reg.byJoinCode[code]; !exists {
			return code
		}
	}
}

// onRoomEmpty is invoked by a Room's own goroutine when its last player
// leaves. It must not block: the actual map cleanup happens here since we
// only need the registry's own mutex, not the room's mailbox.
func (reg *Registry) onRoomEmpty(id types.RoomID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.removeRoomLocked(id)
}

// removeRoomLocked drops a room and every token bound to it, and shuts the
// room's goroutine and any armed timers down. Caller must hold reg.mu.
// Shutdown is dispatched asynchronously: onRoomEmpty is invoked from the
// room's own goroutine (room.go's run loop calling back out once its
// mailbox drains), so a synchronous r.Shutdown here would wait on that
// same goroutine to exit and deadlock.
func (reg *Registry) removeRoomLocked(id types.RoomID) {
	r, ok := reg.rooms[id]
	for code, rid := range reg.byJoinCode {
		if rid == id {
			delete(reg.byJoinCode, code)
		}
	}
	removed := 0
	for tok, b := range reg.tokens {
		if b.roomID == id {
			delete(reg.tokens, tok)
			removed++
		}
	}
	delete(reg.rooms, id)
	metrics.ActiveTokens.Sub(float64(removed))

	if ok {
		// room.Shutdown itself decrements metrics.ActiveRooms once the room's
		// goroutine has actually exited; doing it here too would double-count.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.Shutdown(ctx); err != nil {
				logging.Warn(ctx, "room shutdown did not complete cleanly", zap.String("room_id", string(id)), zap.Error(err))
			}
		}()
	}
}

// reapLoop periodically sweeps for rooms whose membership has gone empty
// without onRoomEmpty firing (e.g. a room stuck mid-shutdown), as a
// belt-and-braces backstop to the event-driven path.
func (reg *Registry) reapLoop() {
	defer close(reg.reapDone)
	ticker := time.NewTicker(reg.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			reg.reapEmpty()
		case <-reg.stopReap:
			return
		}
	}
}

func (reg *Registry) reapEmpty() {
	reg.mu.Lock()
	ids := make([]types.RoomID, 0, len(reg.rooms))
	for id := range reg.rooms {
		ids = append(ids, id)
	}
	reg.mu.Unlock()

	for _, id := range ids {
		reg.mu.Lock()
		r, ok := reg.rooms[id]
		reg.mu.Unlock()
		if !ok {
			continue
		}
		snap := r.Snapshot()
		if snap.PlayerCount == 0 {
			reg.mu.Lock()
			reg.removeRoomLocked(id)
			reg.mu.Unlock()
		}
	}
}

// Shutdown stops the reap loop and shuts every room down cleanly.
func (reg *Registry) Shutdown(ctx context.Context) {
	close(reg.stopReap)
	<-reg.reapDone

	reg.mu.Lock()
	rooms := make([]*room.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	for _, r := range rooms {
		if err := r.Shutdown(ctx); err != nil {
			logging.Warn(ctx, "room shutdown did not complete cleanly", zap.Error(err))
		}
	}
}
