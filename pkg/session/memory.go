package session

import (
	"context"
	"sync"
	"time"

	"github.com/siete/assetforge/pkg/errors"
)

type entry struct {
	state   State
	expires time.Time
}

// MemoryStore keeps states in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, token string, s State, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[token] = entry{state: s, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Take(_ context.Context, token string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	delete(m.entries, token)
	if !ok || m.now().After(e.expires) {
		return nil, errors.New(errors.ErrCodeNotFound, "unknown or expired authorization state")
	}
	return &e.state, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ StateStore = (*MemoryStore)(nil)
