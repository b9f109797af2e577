// Package codec validates and parses inbound client intents and builds
// outbound server events, so that malformed payloads never reach the room
// engine and every broadcast is serialized exactly once.
package codec

import (
	"encoding/json"
	"fmt"
	"unicode"

	"github.com/astralgames/doomdeal/internal/types"
)

// IsPrintableName reports whether s satisfies §3's name constraint: 1-20
// printable characters. Length is checked by callers (it differs by
// context: bytes here, but they agree for the ASCII names this game
// expects); this only guards against control characters and the like
// sneaking into a player name.
func IsPrintableName(s string) bool {
	if len(s) < 1 || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Op is the discriminant of a client intent frame.
type Op string

const (
	OpJoin              Op = "JOIN"
	OpReady             Op = "READY"
	OpStartGame         Op = "START_GAME"
	OpUpdateSettings    Op = "UPDATE_SETTINGS"
	OpActionDrink       Op = "ACTION_DRINK"
	OpActionSwap        Op = "ACTION_SWAP"
	OpActionStealCheese Op = "ACTION_STEAL_CHEESE"
	OpDealerSet         Op = "DEALER_SET"
	OpDealerPreview     Op = "DEALER_PREVIEW"
	OpStartReveal       Op = "START_REVEAL"
	OpVoteRematch       Op = "VOTE_REMATCH"
	OpLeaveRoom         Op = "LEAVE_ROOM"
	OpPing              Op = "PING"
)

var knownOps = map[Op]bool{
	OpJoin: true, OpReady: true, OpStartGame: true, OpUpdateSettings: true,
	OpActionDrink: true, OpActionSwap: true, OpActionStealCheese: true,
	OpDealerSet: true, OpDealerPreview: true, OpStartReveal: true,
	OpVoteRematch: true, OpLeaveRoom: true, OpPing: true,
}

// SettingsPatch carries the optional settings fields of UPDATE_SETTINGS.
type SettingsPatch struct {
	CheeseEnabled *bool `json:"cheeseEnabled,omitempty"`
	CheeseCount   *int  `json:"cheeseCount,omitempty"`
}

// Intent is the fully-parsed, structurally-valid form of an inbound frame.
// Fields irrelevant to Op are left at zero value; the room package reads
// only the fields its handler for Op expects.
type Intent struct {
	Op          Op
	Token       string
	Name        string
	AvatarID    int
	Ready       bool
	Settings    SettingsPatch
	TargetSeat  types.Seat
	Composition []types.CardType
	Seat        types.Seat
	CardType    *types.CardType
	Vote        bool
	T           int64
}

type rawFrame struct {
	Op          string         `json:"op"`
	Token       string         `json:"token"`
	Name        string         `json:"name"`
	AvatarID    int            `json:"avatarId"`
	Ready       bool           `json:"ready"`
	Settings    *SettingsPatch `json:"settings"`
	TargetSeat  *int           `json:"targetSeat"`
	Composition []string       `json:"composition"`
	Seat        *int           `json:"seat"`
	CardType    *string        `json:"cardType"`
	Vote        bool           `json:"vote"`
	T           int64          `json:"t"`
}

// Decode parses and structurally validates a single inbound frame. It never
// inspects game state — that legality check belongs to the room engine.
func Decode(data []byte) (*Intent, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &types.CodedError{Code: types.ErrInvalidMessage, Message: "not a valid JSON object"}
	}
	if raw.Op == "" {
		return nil, &types.CodedError{Code: types.ErrInvalidMessage, Message: "missing op"}
	}
	op := Op(raw.Op)
	if !knownOps[op] {
		return nil, &types.CodedError{Code: types.ErrUnknownOp, Message: fmt.Sprintf("unknown op %q", raw.Op)}
	}

	intent := &Intent{Op: op, Token: raw.Token, Name: raw.Name, AvatarID: raw.AvatarID, Ready: raw.Ready, Vote: raw.Vote, T: raw.T}
	if raw.Settings != nil {
		intent.Settings = *raw.Settings
	}
	if raw.TargetSeat != nil {
		intent.TargetSeat = types.Seat(*raw.TargetSeat)
	}
	if raw.Seat != nil {
		intent.Seat = types.Seat(*raw.Seat)
	}
	if raw.CardType != nil {
		ct := types.CardType(*raw.CardType)
		intent.CardType = &ct
	}

	switch op {
	case OpJoin:
		if raw.Token == "" {
			return nil, &types.CodedError{Code: types.ErrInvalidRequest, Message: "JOIN requires token"}
		}
		if !IsPrintableName(raw.Name) {
			return nil, &types.CodedError{Code: types.ErrInvalidRequest, Message: "name must be 1-20 printable characters"}
		}
	case OpDealerSet:
		if len(raw.Composition) == 0 {
			return nil, &types.CodedError{Code: types.ErrMissingAssignments, Message: "composition is empty"}
		}
		cards := make([]types.CardType, 0, len(raw.Composition))
		for _, c := range raw.Composition {
			ct := types.CardType(c)
			if ct != types.CardSafe && ct != types.CardDoom {
				return nil, &types.CodedError{Code: types.ErrInvalidComposition, Message: fmt.Sprintf("invalid card type %q", c)}
			}
			cards = append(cards, ct)
		}
		intent.Composition = cards
	case OpDealerPreview:
		if raw.Seat == nil {
			return nil, &types.CodedError{Code: types.ErrInvalidRequest, Message: "DEALER_PREVIEW requires seat"}
		}
		if raw.CardType != nil {
			ct := types.CardType(*raw.CardType)
			if ct != types.CardSafe && ct != types.CardDoom {
				return nil, &types.CodedError{Code: types.ErrInvalidComposition, Message: fmt.Sprintf("invalid card type %q", *raw.CardType)}
			}
		}
	case OpActionSwap, OpActionStealCheese:
		if raw.TargetSeat == nil {
			return nil, &types.CodedError{Code: types.ErrInvalidRequest, Message: "targetSeat is required"}
		}
	}

	return intent, nil
}
