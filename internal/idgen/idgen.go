// Package idgen generates the opaque identifiers the server hands to
// clients: room/player IDs via google/uuid, and join codes and bearer
// tokens via a crypto/rand-backed alphabet since neither the teacher nor
// the rest of the example corpus carries a purpose-built short-code
// generator (see DESIGN.md).
package idgen

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/astralgames/doomdeal/internal/types"
)

// joinCodeAlphabet excludes visually ambiguous glyphs: I, O, 0, 1.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const joinCodeLength = 6

// tokenAlphabet is a larger charset for bearer tokens, where ambiguity for
// a human typing it doesn't matter but entropy does.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const tokenLength = 32

func randomString(alphabet string, length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand.Reader failing is unrecoverable for identity
			// generation; there is no safe degraded mode.
			panic("idgen: crypto/rand unavailable: " + err.Error())
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

// NewJoinCode returns a 6-character join code from the unambiguous alphabet.
// The caller is responsible for checking collisions against live rooms.
func NewJoinCode() types.JoinCode {
	return types.JoinCode(randomString(joinCodeAlphabet, joinCodeLength))
}

// NewToken returns an opaque bearer token.
func NewToken() types.Token {
	return types.Token(randomString(tokenAlphabet, tokenLength))
}

// NewRoomID returns a fresh room identifier.
func NewRoomID() types.RoomID {
	return types.RoomID(uuid.NewString())
}

// NewPlayerID returns a fresh player identifier.
func NewPlayerID() types.PlayerID {
	return types.PlayerID(uuid.NewString())
}
