package room

import (
	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/codec"
	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/types"
)

// send serializes event once and hands the bytes to conn's outbound queue.
// Marshal failures are a programmer error (every event type round-trips
// through encoding/json cleanly) and are logged, not propagated, since the
// caller has no meaningful recovery beyond not sending.
func (r *Room) send(conn types.Conn, event any) {
	data, err := codec.Encode(event)
	if err != nil {
		logging.Error(r.ctx, "failed to encode outbound event", zap.Error(err), zap.String("room_id", string(r.ID)))
		return
	}
	conn.Send(data)
}

func (r *Room) sendTo(id types.PlayerID, event any) {
	if p, ok := r.players[id]; ok && p.conn != nil {
		r.send(p.conn, event)
	}
}

// broadcastAll fans event out to every currently-connected socket in the
// room, serializing exactly once per the Broadcaster contract.
func (r *Room) broadcastAll(event any) {
	data, err := codec.Encode(event)
	if err != nil {
		logging.Error(r.ctx, "failed to encode outbound event", zap.Error(err), zap.String("room_id", string(r.ID)))
		return
	}
	for _, p := range r.players {
		if p.conn != nil {
			p.conn.Send(data)
		}
	}
}

func (r *Room) broadcastExcept(exclude types.PlayerID, event any) {
	data, err := codec.Encode(event)
	if err != nil {
		logging.Error(r.ctx, "failed to encode outbound event", zap.Error(err), zap.String("room_id", string(r.ID)))
		return
	}
	for id, p := range r.players {
		if id == exclude || p.conn == nil {
			continue
		}
		p.conn.Send(data)
	}
}

func (r *Room) playerView(p *Player) codec.PlayerView {
	return codec.PlayerView{
		PlayerID:  string(p.ID),
		Name:      p.Name,
		AvatarID:  p.AvatarID,
		Seat:      int(p.Seat),
		Alive:     p.Alive,
		Connected: p.Connected(),
		Ready:     p.Ready,
		HasCheese: p.HasCheese,
	}
}

func (r *Room) playerViews() []codec.PlayerView {
	seats := r.sortedSeats()
	out := make([]codec.PlayerView, 0, len(seats))
	for _, s := range seats {
		out = append(out, r.playerView(r.playerAtSeat(s)))
	}
	return out
}

func (r *Room) settingsView() codec.SettingsView {
	return codec.SettingsView{
		TurnTimerSeconds: r.settings.TurnTimerSeconds,
		CheeseEnabled:    r.settings.CheeseEnabled,
		CheeseCount:      r.settings.CheeseCount,
	}
}

func (r *Room) roomView() codec.RoomView {
	return codec.RoomView{
		RoomID:   string(r.ID),
		JoinCode: string(r.JoinCode),
		HostID:   string(r.hostID),
		Status:   string(r.status),
		Settings: r.settingsView(),
		Players:  r.playerViews(),
		CreatedAt: r.createdAt.UnixMilli(),
	}
}

func (r *Room) gameView() *codec.GameView {
	if r.game == nil {
		return nil
	}
	return &codec.GameView{
		Phase:       string(r.game.phase),
		DealerSeat:  int(r.game.dealerSeat),
		TurnSeat:    int(r.game.turnSeat),
		RoundIndex:  r.game.roundIndex,
		AliveSeats:  intSlice(r.game.aliveSeats),
		DeadlineTs:  r.game.deadlineTs,
		CheeseSeats: intSlice(seatSetKeys(r.game.cheeseSeats)),
	}
}

// sendState sends a full snapshot to one player, used on join and on
// socket rebind so a reconnecting client can rebuild all local state.
func (r *Room) sendState(p *Player) {
	r.send(p.conn, codec.NewState(r.roomView(), r.gameView(), int(p.Seat), string(p.ID)))
}

func (r *Room) broadcastLobbyUpdate() {
	r.broadcastAll(codec.NewLobbyUpdate(r.playerViews(), r.settingsView()))
}

func (r *Room) broadcastPhase() {
	if r.game == nil {
		return
	}
	r.broadcastAll(codec.NewPhase(
		string(r.game.phase),
		int(r.game.dealerSeat),
		int(r.game.turnSeat),
		r.game.deadlineTs,
		intSlice(r.game.aliveSeats),
	))
}

func (r *Room) broadcastDealt() {
	r.broadcastAll(codec.NewDealt(intSlice(r.game.aliveSeats)))
}

func (r *Room) broadcastSwap(from, to types.Seat) {
	r.broadcastAll(codec.NewSwap(int(from), int(to)))
}

// broadcastReveal is the single place a cardType crosses the wire, and only
// for the seat it belongs to (P1 secret containment).
func (r *Room) broadcastReveal(seat types.Seat, card types.CardType) {
	r.broadcastAll(codec.NewReveal(int(seat), string(card)))
}

func (r *Room) broadcastElim(seat types.Seat) {
	r.broadcastAll(codec.NewElim(int(seat)))
}

func (r *Room) broadcastCheeseStolen(from, to types.Seat) {
	r.broadcastAll(codec.NewCheeseStolen(int(from), int(to)))
}

func (r *Room) broadcastCheeseUpdate() {
	r.broadcastAll(codec.NewCheeseUpdate(intSlice(seatSetKeys(r.game.cheeseSeats))))
}

func (r *Room) broadcastDealerPreview(seat types.Seat, assigned bool) {
	r.broadcastExcept(r.bySeat[r.game.dealerSeat], codec.NewDealerPreview(int(seat), assigned))
}

func (r *Room) broadcastVoteUpdate() {
	votedYes := make([]types.Seat, 0, len(r.game.votes))
	for seat, yes := range r.game.votes {
		if yes {
			votedYes = append(votedYes, seat)
		}
	}
	r.broadcastAll(codec.NewVoteUpdate(intSlice(votedYes), len(r.connectedSeats()), string(r.game.phase)))
}

func (r *Room) broadcastPlayerLeft(seat types.Seat) {
	r.broadcastAll(codec.NewPlayerLeft(int(seat), "left"))
}

func (r *Room) broadcastDisconnected(seat types.Seat) {
	r.broadcastAll(codec.NewPlayerLeft(int(seat), "disconnected"))
}

func (r *Room) broadcastRoundEnd(nextDealerSeat types.Seat) {
	r.broadcastAll(codec.NewRoundEnd(int(nextDealerSeat)))
}

func (r *Room) broadcastGameEnd(winnerSeat *int) {
	r.broadcastAll(codec.NewGameEnd(winnerSeat))
}

func (r *Room) sendError(conn types.Conn, err *types.CodedError) {
	r.send(conn, codec.NewError(string(err.Code), err.Message))
}
