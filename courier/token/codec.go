package token

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// DefaultCodeLen gives ample headroom under the platform limit while
	// keeping the truncated digest practically collision free.
	DefaultCodeLen = 12
	// MaxDataBytes is Telegram's hard limit on callback data.
	MaxDataBytes = 64
	// collisionStep is how many hex characters each collision retry adds.
	collisionStep = 4
)

// MaxCodeLen bounds digest extension so prefix + separator + code always
// fits MaxDataBytes. The longest prefix is "rp" plus ":".
const MaxCodeLen = MaxDataBytes - 3

// Codec deterministically maps references to short opaque codes. The
// mapping is content-addressed and one way; reverse lookup is the Store's
// job. Encoding never fails and the code length is independent of the
// reference content, so free-form location names in any script cannot
// blow the size budget.
type Codec struct {
	codeLen int
}

// NewCodec returns a codec producing DefaultCodeLen character codes.
func NewCodec() Codec {
	return Codec{codeLen: DefaultCodeLen}
}

// Encode returns the token for a reference. Pure and deterministic: the
// same reference always yields the same token.
func (c Codec) Encode(ref Reference) Token {
	return c.EncodeLen(ref, c.codeLen)
}

// EncodeLen encodes with an explicit code length, used by the collision
// extension path. Lengths are clamped to [DefaultCodeLen, MaxCodeLen].
func (c Codec) EncodeLen(ref Reference, length int) Token {
	if length < DefaultCodeLen {
		length = DefaultCodeLen
	}
	if length > MaxCodeLen {
		length = MaxCodeLen
	}
	sum := sha256.Sum256([]byte(ref.Canonical()))
	digest := hex.EncodeToString(sum[:])
	return Token{Kind: ref.Kind, Code: digest[:length]}
}
