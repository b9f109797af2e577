package room

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/idgen"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/metrics"
	"github.com/astralgames/doomdeal/internal/types"
)

// handleJoin implements both a fresh join and a session-based reconnection.
// A SessionID that already owns a seat in this room is treated as the same
// browser tab reclaiming its slot (§4.1 reconnection), returning the same
// token rather than minting a new seat — but only while that seat is
// disconnected. A session whose player is still connected is a second tab
// trying to shadow the live one, which S6 forbids outright.
func (r *Room) handleJoin(j jobJoin) joinResult {
	for _, p := range r.players {
		if p.SessionID != "" && p.SessionID == j.SessionID {
			if p.Connected() {
				return joinResult{Err: types.NewError(types.ErrSessionAlreadyInRoom, "this session is already connected to this room")}
			}
			return joinResult{Player: *p, Token: p.Token, IsReconnect: true}
		}
	}

	if r.status == types.StatusInGame {
		return joinResult{Err: types.NewError(types.ErrGameInProgress, "game already in progress")}
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		return joinResult{Err: types.NewError(types.ErrRoomFull, "room is full")}
	}
	for _, p := range r.players {
		if strings.EqualFold(p.Name, j.Name) {
			return joinResult{Err: types.NewError(types.ErrNameTaken, "name already taken in this room")}
		}
	}

	id := idgen.NewPlayerID()
	seat := r.smallestFreeSeat()
	token := idgen.NewToken()

	p := &Player{
		ID:        id,
		Name:      j.Name,
		AvatarID:  j.AvatarID,
		Seat:      seat,
		Alive:     true,
		SessionID: j.SessionID,
		Token:     token,
		JoinedAt:  time.Now(),
	}
	r.players[id] = p
	r.bySeat[seat] = id
	r.byToken[token] = id

	if r.hostID == "" {
		r.hostID = id
	}

	metrics.RoomPlayers.WithLabelValues(string(r.ID)).Set(float64(len(r.players)))
	r.broadcastLobbyUpdate()

	return joinResult{Player: *p, Token: token, IsReconnect: false}
}

// handleBindSocket services a jobBindSocket posted from outside the room's
// own goroutine (the transport layer's first call after JOIN).
func (r *Room) handleBindSocket(j jobBindSocket) error {
	return r.bindSocket(j.Conn, j.Token)
}

// bindSocket attaches conn to the player owning token, closing out any
// previously bound socket for that player (a stale tab) and cancelling a
// pending reconnect-grace timer if one is running. Safe to call directly
// from within the room's own goroutine (handleIntent's JOIN case) since it
// never touches the inbox itself.
func (r *Room) bindSocket(conn types.Conn, token types.Token) error {
	id, ok := r.byToken[token]
	if !ok {
		return types.NewError(types.ErrInvalidToken, "unknown token")
	}
	p := r.players[id]

	if old := p.conn; old != nil && old != conn {
		delete(r.byConn, old)
		old.Close()
	}

	p.conn = conn
	p.disconnectedAt = nil
	r.byConn[conn] = id

	if t, ok := r.graceTimers[id]; ok {
		t.Stop()
		delete(r.graceTimers, id)
		delete(r.graceEpoch, id)
	}

	r.sendState(p)
	r.broadcastLobbyUpdate()

	logging.Info(r.ctx, "player socket bound",
		zap.String("room_id", string(r.ID)), zap.String("player_id", string(id)))
	return nil
}

// handleSocketClosed marks the owning player disconnected and, depending on
// phase, starts the appropriate grace window. It is idempotent: a conn not
// present in byConn (already replaced by a newer bind) is a no-op.
func (r *Room) handleSocketClosed(conn types.Conn) {
	id, ok := r.byConn[conn]
	if !ok {
		return
	}
	delete(r.byConn, conn)

	p, ok := r.players[id]
	if !ok || p.conn != conn {
		return
	}
	p.conn = nil
	now := time.Now()
	p.disconnectedAt = &now

	metrics.DisconnectsTotal.WithLabelValues(string(r.currentPhase())).Inc()

	if r.status == types.StatusLobby {
		// LOBBY disconnect is immediate removal, not a grace window.
		r.removePlayer(id)
		return
	}

	r.broadcastDisconnected(p.Seat)
	r.broadcastLobbyUpdate()

	switch r.game.phase {
	case types.PhaseDealerSetup:
		if p.Seat == r.game.dealerSeat {
			r.armDealerGrace()
		}
	case types.PhaseAwaitReveal:
		if p.Seat == r.game.dealerSeat {
			r.armRevealGrace()
		}
	case types.PhaseTurns:
		if p.Seat == r.game.turnSeat {
			r.armDisconnectedTurnTimer()
		}
		r.armReconnectGrace(id)
	case types.PhaseGameEnd:
		r.armReconnectGrace(id)
		r.checkRematchQuorum()
	default:
		r.armReconnectGrace(id)
	}
}

func (r *Room) currentPhase() types.Phase {
	if r.game == nil {
		return "LOBBY"
	}
	return r.game.phase
}

// armReconnectGrace schedules removal of a disconnected player once the
// reconnect window elapses without the player rebinding a socket.
func (r *Room) armReconnectGrace(id types.PlayerID) {
	r.graceEpoch[id]++
	epoch := r.graceEpoch[id]
	r.graceTimers[id] = r.clock.AfterFunc(r.cfg.ReconnectTimeout, func() {
		r.post(jobReconnectGraceFire{PlayerID: id, Epoch: epoch})
	})
}

func (r *Room) handleReconnectGraceFire(id types.PlayerID, epoch uint64) {
	if r.graceEpoch[id] != epoch {
		return
	}
	delete(r.graceTimers, id)
	delete(r.graceEpoch, id)
	r.removePlayer(id)
}

// removePlayer fully evicts a player from the room, vacating their seat.
// Per the decided Open Question, a voluntarily-removed player cannot rejoin
// this room under the same session.
func (r *Room) removePlayer(id types.PlayerID) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	wasDealer := r.game != nil && p.Seat == r.game.dealerSeat
	wasTurn := r.game != nil && p.Seat == r.game.turnSeat

	if p.conn != nil {
		delete(r.byConn, p.conn)
		p.conn.Close()
	}
	delete(r.byToken, p.Token)
	delete(r.bySeat, p.Seat)
	delete(r.players, id)
	if r.game != nil {
		r.game.removeAlive(p.Seat)
		delete(r.game.votes, p.Seat)
	}

	wasHost := r.hostID == id
	if wasHost {
		r.hostID = r.pickNewHost()
	}

	metrics.RoomPlayers.WithLabelValues(string(r.ID)).Set(float64(len(r.players)))
	r.broadcastPlayerLeft(p.Seat)
	r.broadcastLobbyUpdate()

	if len(r.players) == 0 {
		if r.onEmpty != nil {
			r.onEmpty(r.ID)
		}
		return
	}

	if r.status == types.StatusInGame {
		r.onPlayerGoneDuringGame(p.Seat, wasDealer, wasTurn)
	}
}

// pickNewHost promotes the longest-seated remaining player, mirroring the
// teacher's owner-migration rule in its room hub.
func (r *Room) pickNewHost() types.PlayerID {
	var best *Player
	for _, p := range r.players {
		if best == nil || p.JoinedAt.Before(best.JoinedAt) {
			best = p
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

func (r *Room) setReady(id types.PlayerID, ready bool) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	p.Ready = ready
	r.broadcastLobbyUpdate()
}

func (r *Room) updateSettings(id types.PlayerID, cheeseEnabled *bool, cheeseCount *int) error {
	if id != r.hostID {
		return types.NewError(types.ErrNotHost, "only the host may change settings")
	}
	if r.status != types.StatusLobby {
		return types.NewError(types.ErrGameInProgress, "cannot change settings mid-game")
	}
	if cheeseEnabled != nil {
		r.settings.CheeseEnabled = *cheeseEnabled
	}
	if cheeseCount != nil {
		if *cheeseCount < 0 || *cheeseCount > r.cfg.MaxCheeseCount {
			return types.NewError(types.ErrInvalidRequest, "cheese count out of range")
		}
		r.settings.CheeseCount = *cheeseCount
	}
	r.broadcastLobbyUpdate()
	return nil
}

func (r *Room) canStartGame() error {
	if len(r.players) < 3 {
		return types.NewError(types.ErrNotEnoughPlayers, "need at least 3 players")
	}
	for _, p := range r.players {
		if p.ID == r.hostID {
			continue
		}
		if !p.Ready {
			return types.NewError(types.ErrNotAllReady, "not all players are ready")
		}
	}
	return nil
}
