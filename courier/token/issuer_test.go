package token

import (
	"context"
	"errors"
	"testing"
)

// collidingStore rejects the first n distinct codes with ErrTokenCollision
// to exercise the digest extension path.
type collidingStore struct {
	Store
	rejections int
}

func (c *collidingStore) Record(ctx context.Context, t Token, ref Reference) error {
	if c.rejections > 0 {
		c.rejections--
		return ErrTokenCollision
	}
	return c.Store.Record(ctx, t, ref)
}

func TestIssuerRoundTrip(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(NewCodec(), NewMemoryStore())
	ref := PointRef(sessionAt(42, "Wologda"), 1)

	tok, err := issuer.Issue(ctx, ref)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := issuer.Resolve(ctx, tok.String())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.Equal(ref) {
		t.Fatalf("resolve mismatch: %+v != %+v", got, ref)
	}
}

func TestIssuerExtendsOnCollision(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	issuer := NewIssuer(NewCodec(), &collidingStore{Store: inner, rejections: 2})
	ref := PointRef(sessionAt(42, "Wologda"), 0)

	tok, err := issuer.Issue(ctx, ref)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	want := DefaultCodeLen + 2*4
	if len(tok.Code) != want {
		t.Fatalf("code length = %d, want %d", len(tok.Code), want)
	}
	if len(tok.String()) > MaxDataBytes {
		t.Fatalf("extended token %q exceeds limit", tok)
	}

	got, err := inner.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("resolve extended: %v", err)
	}
	if !got.Equal(ref) {
		t.Fatalf("extended token resolves to wrong reference")
	}
}

func TestIssuerCollisionSafety(t *testing.T) {
	// Two distinct references forced onto the same truncated digest must
	// both stay resolvable to their own reference.
	ctx := context.Background()
	store := NewMemoryStore()
	issuer := NewIssuer(NewCodec(), store)

	first := PointRef(sessionAt(42, "Wologda"), 0)
	second := PointRef(sessionAt(43, "Pskov"), 1)

	firstTok, err := issuer.Issue(ctx, first)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	// Simulate the collision by pre-recording second's default code as
	// taken, as if it hashed onto firstTok.
	collided := &collidingStore{Store: store, rejections: 1}
	secondTok, err := NewIssuer(NewCodec(), collided).Issue(ctx, second)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if firstTok.String() == secondTok.String() {
		t.Fatal("collision produced identical tokens")
	}

	gotFirst, err := issuer.Resolve(ctx, firstTok.String())
	if err != nil {
		t.Fatalf("resolve first: %v", err)
	}
	gotSecond, err := issuer.Resolve(ctx, secondTok.String())
	if err != nil {
		t.Fatalf("resolve second: %v", err)
	}
	if !gotFirst.Equal(first) || !gotSecond.Equal(second) {
		t.Fatal("collision caused wrong reference resolution")
	}
}

func TestIssuerResolveMalformed(t *testing.T) {
	issuer := NewIssuer(NewCodec(), NewMemoryStore())
	if _, err := issuer.Resolve(context.Background(), "bogus"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestIssuerDropSession(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(NewCodec(), NewMemoryStore())
	sid := sessionAt(42, "Wologda")

	tok, err := issuer.Issue(ctx, RouteRef(sid))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := issuer.DropSession(ctx, sid); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := issuer.Resolve(ctx, tok.String()); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}
