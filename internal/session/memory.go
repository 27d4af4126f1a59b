package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It is the default when no
// session database is configured; state is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]State
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]State),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return State{}, ErrNotFound
	}
	if expired(st, m.ttl, m.now()) {
		delete(m.sessions, id)
		return State{}, ErrNotFound
	}
	return st, nil
}

func (m *MemoryStore) Save(_ context.Context, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st.UpdatedAt = m.now()
	m.sessions[st.ID] = st
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, st := range m.sessions {
		if st.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, including expired ones not
// yet swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) Close() error { return nil }
