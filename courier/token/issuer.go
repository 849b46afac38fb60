package token

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/routedesk/courierbot/core/logger"
	"github.com/routedesk/courierbot/courier/session"
)

// Issuer binds the pure codec to a store and applies the collision policy:
// when a truncated digest already maps to a different reference, the digest
// is extended in fixed steps until the mapping records cleanly. Existing
// mappings are never overwritten, so a recorded code always resolves to
// the reference it was created for.
type Issuer struct {
	codec Codec
	store Store
}

// NewIssuer wires a codec to its reverse-lookup store.
func NewIssuer(codec Codec, store Store) *Issuer {
	return &Issuer{codec: codec, store: store}
}

// Codec exposes the pure forward mapping for callers that pre-compute
// codes before the surface they belong to is committed.
func (i *Issuer) Codec() Codec { return i.codec }

// Issue encodes and records a token for the reference. The returned token
// may be longer than the default encoding when a collision forced an
// extension; callers that rendered the default code should compare and
// refresh their surface.
func (i *Issuer) Issue(ctx context.Context, ref Reference) (Token, error) {
	for length := i.codec.codeLen; length <= MaxCodeLen; length += collisionStep {
		t := i.codec.EncodeLen(ref, length)
		err := i.store.Record(ctx, t, ref)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrTokenCollision) {
			return Token{}, err
		}
		logger.Warn(ctx, "token.issuer", "token.collision.extend",
			slog.String("token", t.String()),
			slog.Int("next_len", length+collisionStep),
		)
	}
	// Exhausting the full digest means two references share a sha256
	// prefix of MaxCodeLen characters; treat as a data integrity fault.
	return Token{}, fmt.Errorf("digest exhausted for %q: %w", ref.Canonical(), ErrTokenCollision)
}

// Resolve parses a raw wire value and looks up its reference.
func (i *Issuer) Resolve(ctx context.Context, raw string) (Reference, error) {
	t, err := Parse(raw)
	if err != nil {
		return Reference{}, err
	}
	return i.store.Resolve(ctx, t)
}

// DropSession evicts all tokens minted for the session.
func (i *Issuer) DropSession(ctx context.Context, id session.ID) error {
	return i.store.DropSession(ctx, id)
}
