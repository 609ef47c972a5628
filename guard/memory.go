package guard

import (
	"context"
	"sync"
	"time"
)

type claim struct {
	expires time.Time
}

type hits struct {
	started time.Time
	window  time.Duration
	count   int
}

// MemoryStore keeps guard state in process. It is not shared between replicas.
// Expired entries are pruned on every call.
type MemoryStore struct {
	mu     sync.Mutex
	claims map[string]claim
	hits   map[string]hits
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims: make(map[string]claim),
		hits:   make(map[string]hits),
		now:    time.Now,
	}
}

func (m *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.prune(now)

	h, ok := m.hits[key]
	if !ok {
		h = hits{started: now, window: window}
	}
	h.count++
	m.hits[key] = h
	return h.count, nil
}

func (m *MemoryStore) Claim(_ context.Context, fingerprint string, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.prune(now)

	if _, held := m.claims[fingerprint]; held {
		return false, nil
	}
	m.claims[fingerprint] = claim{expires: now.Add(window)}
	return true, nil
}

// Complete is a no-op: a claim already blocks the fingerprint until its window ends,
// and Release is only called for claims that never completed.
func (m *MemoryStore) Complete(_ context.Context, _ string) error {
	return nil
}

func (m *MemoryStore) Release(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.claims, fingerprint)
	return nil
}

// Len reports the number of live claims and rate counters.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims) + len(m.hits)
}

// prune must be called with mu held.
func (m *MemoryStore) prune(now time.Time) {
	for k, c := range m.claims {
		if !now.Before(c.expires) {
			delete(m.claims, k)
		}
	}
	for k, h := range m.hits {
		if now.Sub(h.started) >= h.window {
			delete(m.hits, k)
		}
	}
}
