package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJoinCodeHasExpectedLengthAndUnambiguousAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := NewJoinCode()
		assert.Len(t, string(code), joinCodeLength)
		for _, c := range string(code) {
			assert.NotContains(t, "IO01", string(c), "join codes must exclude visually ambiguous glyphs")
			assert.True(t, strings.ContainsRune(joinCodeAlphabet, c))
		}
	}
}

func TestNewTokenHasExpectedLength(t *testing.T) {
	token := NewToken()
	assert.Len(t, string(token), tokenLength)
}

func TestNewRoomIDAndPlayerIDAreUnique(t *testing.T) {
	a := NewRoomID()
	b := NewRoomID()
	assert.NotEqual(t, a, b)

	p1 := NewPlayerID()
	p2 := NewPlayerID()
	assert.NotEqual(t, p1, p2)
}

func TestRandomStringValuesAreNotTriviallyRepeated(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code := string(NewJoinCode())
		assert.False(t, seen[code], "crypto/rand-backed generation should not collide across 20 draws")
		seen[code] = true
	}
}
