package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allEvents builds one instance of every outbound event type, so a single
// table test can assert a property across the whole wire surface instead
// of duplicating it per constructor.
func allEvents() map[string]any {
	assigned := true
	winner := 3
	deadline := int64(1000)
	return map[string]any{
		"STATE":          NewState(RoomView{}, &GameView{}, 0, "p1"),
		"LOBBY_UPDATE":   NewLobbyUpdate(nil, SettingsView{}),
		"PHASE":          NewPhase("TURNS", 0, 1, &deadline, []int{0, 1, 2}),
		"DEALT":          NewDealt([]int{0, 1, 2}),
		"SWAP":           NewSwap(0, 1),
		"REVEAL":         NewReveal(2, "DOOM"),
		"ELIM":           NewElim(2),
		"CHEESE_STOLEN":  NewCheeseStolen(0, 1),
		"CHEESE_UPDATE":  NewCheeseUpdate([]int{1}),
		"DEALER_PREVIEW": NewDealerPreview(1, assigned),
		"VOTE_UPDATE":    NewVoteUpdate([]int{0, 1}, 2, "GAME_END"),
		"PLAYER_LEFT":    NewPlayerLeft(1, "disconnected"),
		"ROUND_END":      NewRoundEnd(2),
		"GAME_END":       NewGameEnd(&winner),
		"ERROR":          NewError("NOT_HOST", "nope"),
		"PONG":           NewPong(42),
	}
}

func TestEveryEventEncodesItsOwnOpDiscriminant(t *testing.T) {
	for wantOp, event := range allEvents() {
		data, err := Encode(event)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, wantOp, decoded["op"], "event %T must self-report its op", event)
	}
}

// TestOnlyRevealCarriesCardType guards the secret-preservation invariant:
// no event other than REVEAL ever puts a card's identity on the wire.
// DEALER_PREVIEW intentionally carries only a boolean.
func TestOnlyRevealCarriesCardType(t *testing.T) {
	for op, event := range allEvents() {
		data, err := Encode(event)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))

		_, hasCardType := decoded["cardType"]
		if op == "REVEAL" {
			assert.True(t, hasCardType, "REVEAL must carry cardType")
			continue
		}
		assert.False(t, hasCardType, "%s must never carry cardType", op)
	}
}

func TestDealerPreviewEventNeverCarriesAssignedCardType(t *testing.T) {
	data, err := Encode(NewDealerPreview(3, true))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["assigned"])
	_, hasCardType := decoded["cardType"]
	assert.False(t, hasCardType)
}
