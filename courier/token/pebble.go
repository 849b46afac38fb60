package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"log/slog"

	"github.com/cockroachdb/pebble"

	"github.com/routedesk/courierbot/core/logger"
	"github.com/routedesk/courierbot/courier/session"
)

// Key layout:
//
//	tok:<prefix>:<code>        -> JSON Reference
//	sid:<sessionHash>:<tokKey> -> empty (eviction index)
type pebbleStore struct {
	db *pebble.DB
	// mu serializes Record's get-then-set so the collision check is
	// atomic per key.
	mu sync.Mutex
}

// OpenPebbleStore opens (or creates) a pebble database at path and returns
// a persistent Store on top of it.
func OpenPebbleStore(path string) (Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("token store: open %s: %w", path, err)
	}
	logger.Info(context.Background(), "token.store", "pebble.opened",
		slog.String("path", path),
	)
	return &pebbleStore{db: db}, nil
}

func tokKey(t Token) []byte {
	return []byte("tok:" + t.String())
}

func sessHash(id session.ID) string {
	sum := sha256.Sum256([]byte(id.Canonical()))
	return hex.EncodeToString(sum[:8])
}

func sidKey(id session.ID, t Token) []byte {
	return []byte("sid:" + sessHash(id) + ":" + t.String())
}

func (p *pebbleStore) Record(ctx context.Context, t Token, ref Reference) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("token store: marshal reference: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := tokKey(t)
	val, closer, err := p.db.Get(key)
	switch {
	case err == nil:
		var existing Reference
		decodeErr := json.Unmarshal(val, &existing)
		_ = closer.Close()
		if decodeErr != nil {
			return fmt.Errorf("token store: corrupt mapping for %s: %w", t, decodeErr)
		}
		if existing.Equal(ref) {
			return nil
		}
		return ErrTokenCollision
	case errors.Is(err, pebble.ErrNotFound):
		// fall through to insert
	default:
		return fmt.Errorf("token store: get %s: %w", t, err)
	}

	batch := p.db.NewBatch()
	if err := batch.Set(key, data, nil); err != nil {
		_ = batch.Close()
		return fmt.Errorf("token store: set %s: %w", t, err)
	}
	if err := batch.Set(sidKey(ref.Session, t), nil, nil); err != nil {
		_ = batch.Close()
		return fmt.Errorf("token store: index %s: %w", t, err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("token store: commit %s: %w", t, err)
	}
	logger.Debug(ctx, "token.store", "token.recorded",
		slog.String("token", t.String()),
	)
	return nil
}

func (p *pebbleStore) Resolve(_ context.Context, t Token) (Reference, error) {
	val, closer, err := p.db.Get(tokKey(t))
	if errors.Is(err, pebble.ErrNotFound) {
		return Reference{}, ErrUnknownToken
	}
	if err != nil {
		return Reference{}, fmt.Errorf("token store: get %s: %w", t, err)
	}
	defer func() { _ = closer.Close() }()

	var ref Reference
	if err := json.Unmarshal(val, &ref); err != nil {
		return Reference{}, fmt.Errorf("token store: corrupt mapping for %s: %w", t, err)
	}
	return ref, nil
}

func (p *pebbleStore) DropSession(ctx context.Context, id session.ID) error {
	prefix := []byte("sid:" + sessHash(id) + ":")
	upper := append(append([]byte(nil), prefix...), 0xff)

	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return fmt.Errorf("token store: iter: %w", err)
	}
	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		keys = append(keys, key)
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("token store: iter close: %w", err)
	}

	batch := p.db.NewBatch()
	for _, key := range keys {
		raw := string(key[len(prefix):])
		if err := batch.Delete([]byte("tok:"+raw), nil); err != nil {
			_ = batch.Close()
			return fmt.Errorf("token store: delete: %w", err)
		}
		if err := batch.Delete(key, nil); err != nil {
			_ = batch.Close()
			return fmt.Errorf("token store: delete index: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("token store: drop commit: %w", err)
	}
	logger.Info(ctx, "token.store", "session.tokens.dropped",
		slog.String("session_id", id.String()),
		slog.Int("count", len(keys)),
	)
	return nil
}

func (p *pebbleStore) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
