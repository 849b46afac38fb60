package token

import (
	"context"
	"sync"

	"github.com/routedesk/courierbot/courier/session"
)

type memoryStore struct {
	mu     sync.Mutex
	refs   map[string]Reference
	bySess map[string][]string
}

// NewMemoryStore constructs an in-memory Store for tests and development.
func NewMemoryStore() Store {
	return &memoryStore{
		refs:   make(map[string]Reference),
		bySess: make(map[string][]string),
	}
}

func (m *memoryStore) Record(_ context.Context, t Token, ref Reference) error {
	key := t.String()
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.refs[key]; ok {
		if existing.Equal(ref) {
			return nil
		}
		return ErrTokenCollision
	}
	m.refs[key] = ref
	sid := ref.Session.Canonical()
	m.bySess[sid] = append(m.bySess[sid], key)
	return nil
}

func (m *memoryStore) Resolve(_ context.Context, t Token) (Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[t.String()]
	if !ok {
		return Reference{}, ErrUnknownToken
	}
	return ref, nil
}

func (m *memoryStore) DropSession(_ context.Context, id session.ID) error {
	sid := id.Canonical()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.bySess[sid] {
		delete(m.refs, key)
	}
	delete(m.bySess, sid)
	return nil
}

func (m *memoryStore) Close() error { return nil }
