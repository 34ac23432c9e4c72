// Package cooldown drops repeated deliveries from the same sender that arrive
// within a short window. A rejected message is dropped, not deferred.
package cooldown

import (
	"context"
	"sync"
	"time"
)

const DefaultWindow = 5 * time.Second

// Store performs an atomic check-and-set: it records key for ttl only if no
// unexpired record exists, and reports whether it did.
type Store interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Gate struct {
	store  Store
	window time.Duration
}

func NewGate(store Store, window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gate{store: store, window: window}
}

func (g *Gate) Window() time.Duration { return g.window }

// Allow reports whether a message from sender may be processed now. Keys are
// scoped by tenant so the same phone number on two tenants never collides.
func (g *Gate) Allow(ctx context.Context, tenantID, sender string) (bool, error) {
	return g.store.Acquire(ctx, Key(tenantID, sender), g.window)
}

func Key(tenantID, sender string) string {
	return "cooldown:" + tenantID + ":" + sender
}

// MemoryStore is the single-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	accepted map[string]time.Time
	ops      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, accepted: make(map[string]time.Time)}
}

// WithClock replaces the time source.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.ops++
	if m.ops%1024 == 0 {
		m.prune(now, ttl)
	}
	if last, ok := m.accepted[key]; ok && now.Sub(last) < ttl {
		return false, nil
	}
	m.accepted[key] = now
	return true, nil
}

func (m *MemoryStore) prune(now time.Time, ttl time.Duration) {
	for k, last := range m.accepted {
		if now.Sub(last) >= ttl {
			delete(m.accepted, k)
		}
	}
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accepted)
}
