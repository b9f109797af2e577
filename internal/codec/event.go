package codec

import "encoding/json"

// Outbound event payloads, one struct per §6 server-to-client event. Each
// embeds its own "op" discriminant so Encode is a single json.Marshal call
// per event — the "serialize once" requirement of the Broadcaster.

type PlayerView struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	AvatarID    int    `json:"avatarId"`
	Seat        int    `json:"seat"`
	Alive       bool   `json:"alive"`
	Connected   bool   `json:"connected"`
	Ready       bool   `json:"ready"`
	HasCheese   bool   `json:"hasCheese"`
}

type SettingsView struct {
	TurnTimerSeconds int  `json:"turnTimerSeconds"`
	CheeseEnabled    bool `json:"cheeseEnabled"`
	CheeseCount      int  `json:"cheeseCount"`
}

type RoomView struct {
	RoomID    string       `json:"roomId"`
	JoinCode  string       `json:"joinCode"`
	HostID    string       `json:"hostId"`
	Status    string       `json:"status"`
	Settings  SettingsView `json:"settings"`
	Players   []PlayerView `json:"players"`
	CreatedAt int64        `json:"createdAt"`
}

type GameView struct {
	Phase       string `json:"phase"`
	DealerSeat  int    `json:"dealerSeat"`
	TurnSeat    int    `json:"turnSeat"`
	RoundIndex  int    `json:"roundIndex"`
	AliveSeats  []int  `json:"aliveSeats"`
	DeadlineTs  *int64 `json:"deadlineTs"`
	CheeseSeats []int  `json:"cheeseSeats"`
}

type StateEvent struct {
	Op           string    `json:"op"`
	Room         RoomView  `json:"room"`
	Game         *GameView `json:"game"`
	YourSeat     int       `json:"yourSeat"`
	YourPlayerID string    `json:"yourPlayerId"`
}

func NewState(room RoomView, game *GameView, yourSeat int, yourPlayerID string) StateEvent {
	return StateEvent{Op: "STATE", Room: room, Game: game, YourSeat: yourSeat, YourPlayerID: yourPlayerID}
}

type LobbyUpdateEvent struct {
	Op       string       `json:"op"`
	Players  []PlayerView `json:"players"`
	Settings SettingsView `json:"settings"`
}

func NewLobbyUpdate(players []PlayerView, settings SettingsView) LobbyUpdateEvent {
	return LobbyUpdateEvent{Op: "LOBBY_UPDATE", Players: players, Settings: settings}
}

type PhaseEvent struct {
	Op         string `json:"op"`
	Phase      string `json:"phase"`
	DealerSeat int    `json:"dealerSeat"`
	TurnSeat   int    `json:"turnSeat"`
	DeadlineTs *int64 `json:"deadlineTs"`
	AliveSeats []int  `json:"aliveSeats"`
}

func NewPhase(phase string, dealerSeat, turnSeat int, deadlineTs *int64, aliveSeats []int) PhaseEvent {
	return PhaseEvent{Op: "PHASE", Phase: phase, DealerSeat: dealerSeat, TurnSeat: turnSeat, DeadlineTs: deadlineTs, AliveSeats: aliveSeats}
}

type DealtEvent struct {
	Op         string `json:"op"`
	AliveSeats []int  `json:"aliveSeats"`
}

func NewDealt(aliveSeats []int) DealtEvent {
	return DealtEvent{Op: "DEALT", AliveSeats: aliveSeats}
}

type SwapEvent struct {
	Op       string `json:"op"`
	FromSeat int    `json:"fromSeat"`
	ToSeat   int    `json:"toSeat"`
}

func NewSwap(from, to int) SwapEvent {
	return SwapEvent{Op: "SWAP", FromSeat: from, ToSeat: to}
}

type RevealEvent struct {
	Op       string `json:"op"`
	Seat     int    `json:"seat"`
	CardType string `json:"cardType"`
}

func NewReveal(seat int, cardType string) RevealEvent {
	return RevealEvent{Op: "REVEAL", Seat: seat, CardType: cardType}
}

type ElimEvent struct {
	Op   string `json:"op"`
	Seat int    `json:"seat"`
}

func NewElim(seat int) ElimEvent {
	return ElimEvent{Op: "ELIM", Seat: seat}
}

type CheeseStolenEvent struct {
	Op       string `json:"op"`
	FromSeat int    `json:"fromSeat"`
	ToSeat   int    `json:"toSeat"`
}

func NewCheeseStolen(from, to int) CheeseStolenEvent {
	return CheeseStolenEvent{Op: "CHEESE_STOLEN", FromSeat: from, ToSeat: to}
}

type CheeseUpdateEvent struct {
	Op          string `json:"op"`
	CheeseSeats []int  `json:"cheeseSeats"`
}

func NewCheeseUpdate(seats []int) CheeseUpdateEvent {
	return CheeseUpdateEvent{Op: "CHEESE_UPDATE", CheeseSeats: seats}
}

// DealerPreviewEvent carries only a boolean, never a card type — the
// secret-preservation rule of §4.4.
type DealerPreviewEvent struct {
	Op       string `json:"op"`
	Seat     int    `json:"seat"`
	Assigned bool   `json:"assigned"`
}

func NewDealerPreview(seat int, assigned bool) DealerPreviewEvent {
	return DealerPreviewEvent{Op: "DEALER_PREVIEW", Seat: seat, Assigned: assigned}
}

type VoteUpdateEvent struct {
	Op            string `json:"op"`
	VotedYes      []int  `json:"votedYes"`
	RequiredVotes int    `json:"requiredVotes"`
	Phase         string `json:"phase"`
}

func NewVoteUpdate(votedYes []int, required int, phase string) VoteUpdateEvent {
	return VoteUpdateEvent{Op: "VOTE_UPDATE", VotedYes: votedYes, RequiredVotes: required, Phase: phase}
}

type PlayerLeftEvent struct {
	Op     string `json:"op"`
	Seat   int    `json:"seat"`
	Reason string `json:"reason"`
}

func NewPlayerLeft(seat int, reason string) PlayerLeftEvent {
	return PlayerLeftEvent{Op: "PLAYER_LEFT", Seat: seat, Reason: reason}
}

type RoundEndEvent struct {
	Op            string `json:"op"`
	NextDealerSeat int   `json:"nextDealerSeat"`
}

func NewRoundEnd(nextDealerSeat int) RoundEndEvent {
	return RoundEndEvent{Op: "ROUND_END", NextDealerSeat: nextDealerSeat}
}

type GameEndEvent struct {
	Op         string `json:"op"`
	WinnerSeat *int   `json:"winnerSeat"`
}

func NewGameEnd(winnerSeat *int) GameEndEvent {
	return GameEndEvent{Op: "GAME_END", WinnerSeat: winnerSeat}
}

type ErrorEvent struct {
	Op      string `json:"op"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) ErrorEvent {
	return ErrorEvent{Op: "ERROR", Code: code, Message: message}
}

type PongEvent struct {
	Op string `json:"op"`
	T  int64  `json:"t"`
}

func NewPong(t int64) PongEvent {
	return PongEvent{Op: "PONG", T: t}
}

// Encode serializes an event exactly once; callers fan the resulting bytes
// out to every recipient rather than re-marshaling per recipient.
func Encode(event any) ([]byte, error) {
	return json.Marshal(event)
}
