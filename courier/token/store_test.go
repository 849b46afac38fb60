package token

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec()
	store := NewMemoryStore()

	refs := []Reference{
		RouteRef(sessionAt(42, "Wologda")),
		PointRef(sessionAt(42, "Wologda"), 0),
		PointRef(sessionAt(42, "Wologda"), 1),
		PhotoRef(sessionAt(42, "Wologda"), 1),
	}
	for _, ref := range refs {
		tok := codec.Encode(ref)
		if err := store.Record(ctx, tok, ref); err != nil {
			t.Fatalf("record: %v", err)
		}
		got, err := store.Resolve(ctx, tok)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !got.Equal(ref) {
			t.Fatalf("resolve mismatch: %+v != %+v", got, ref)
		}
	}
}

func TestMemoryStoreRecordIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ref := PointRef(sessionAt(42, "Wologda"), 0)
	tok := NewCodec().Encode(ref)

	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, tok, ref); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
}

func TestMemoryStoreCollisionNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	first := PointRef(sessionAt(42, "Wologda"), 0)
	second := PointRef(sessionAt(43, "Pskov"), 5)
	// Force both references onto one code.
	tok := Token{Kind: KindPoint, Code: "deadbeef0123"}

	if err := store.Record(ctx, tok, first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := store.Record(ctx, tok, second); !errors.Is(err, ErrTokenCollision) {
		t.Fatalf("expected ErrTokenCollision, got %v", err)
	}
	got, err := store.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.Equal(first) {
		t.Fatalf("mapping was reassigned: %+v", got)
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Resolve(context.Background(), Token{Kind: KindRoute, Code: "nosuchcode00"})
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestMemoryStoreDropSession(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec()
	store := NewMemoryStore()
	keep := sessionAt(1, "Keep")
	drop := sessionAt(2, "Drop")

	keepTok := codec.Encode(RouteRef(keep))
	dropTok := codec.Encode(RouteRef(drop))
	if err := store.Record(ctx, keepTok, RouteRef(keep)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, dropTok, RouteRef(drop)); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := store.DropSession(ctx, drop); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := store.Resolve(ctx, dropTok); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("dropped token still resolves")
	}
	if _, err := store.Resolve(ctx, keepTok); err != nil {
		t.Fatalf("unrelated session evicted: %v", err)
	}
}

func TestMemoryStoreConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ref := PointRef(sessionAt(42, "Wologda"), 0)
	tok := NewCodec().Encode(ref)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Record(ctx, tok, ref)
		}()
	}
	wg.Wait()

	got, err := store.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.Equal(ref) {
		t.Fatalf("resolve mismatch after concurrent records")
	}
}

func TestPebbleStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenPebbleStore(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	codec := NewCodec()
	ref := PointRef(sessionAt(42, "Вологда"), 1)
	tok := codec.Encode(ref)
	if err := store.Record(ctx, tok, ref); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, tok, ref); err != nil {
		t.Fatalf("record twice: %v", err)
	}

	got, err := store.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.Equal(ref) {
		t.Fatalf("resolve mismatch: %+v != %+v", got, ref)
	}

	other := PhotoRef(sessionAt(9, "Pskov"), 2)
	if err := store.Record(ctx, tok, other); !errors.Is(err, ErrTokenCollision) {
		t.Fatalf("expected ErrTokenCollision, got %v", err)
	}

	if err := store.DropSession(ctx, ref.Session); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := store.Resolve(ctx, tok); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken after drop, got %v", err)
	}
}
