package session

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	id     ID
	points []Point
}

// NewMemoryStore constructs an in-memory Store implementation for tests
// and development.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]memoryEntry)}
}

func (m *memoryStore) Create(_ context.Context, id ID, points []Point) error {
	cp := make([]Point, len(points))
	copy(cp, points)
	for i := range cp {
		cp[i].Index = i
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id.String()] = memoryEntry{id: id, points: cp}
	return nil
}

func (m *memoryStore) PointCount(_ context.Context, id ID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id.String()]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return len(entry.points), nil
}

func (m *memoryStore) PointAt(_ context.Context, id ID, index int) (Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id.String()]
	if !ok {
		return Point{}, ErrSessionNotFound
	}
	if index < 0 || index >= len(entry.points) {
		return Point{}, ErrPointOutOfRange
	}
	return entry.points[index], nil
}

func (m *memoryStore) Points(_ context.Context, id ID) ([]Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id.String()]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]Point, len(entry.points))
	copy(out, entry.points)
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id.String()]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id.String())
	return nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID int64) ([]ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ID
	for _, entry := range m.sessions {
		if entry.id.UserID == userID {
			out = append(out, entry.id)
		}
	}
	return out, nil
}
