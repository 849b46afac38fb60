package token

import (
	"context"

	"github.com/routedesk/courierbot/courier/session"
)

// Store persists the token to reference mapping and provides the reverse
// lookup the codec cannot perform alone. Record must be atomic per code so
// the collision policy holds without lost updates.
type Store interface {
	// Record upserts the mapping idempotently: recording an equal
	// reference under an existing code is a no-op, while a different
	// reference yields ErrTokenCollision. Mappings are never reassigned.
	Record(ctx context.Context, t Token, ref Reference) error
	// Resolve returns the reference a token was recorded for, or
	// ErrUnknownToken.
	Resolve(ctx context.Context, t Token) (Reference, error)
	// DropSession evicts every token minted for a session. Tokens
	// otherwise live as long as their owning session.
	DropSession(ctx context.Context, id session.ID) error
	// Close releases underlying resources.
	Close() error
}
