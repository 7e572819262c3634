package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements CounterStore with an in-process map. This is the
// default store: fast, no persistence, and counters are local to the process.
// A multi-instance deployment behind a load balancer must substitute the
// Redis store to share counters.
type MemoryStore struct {
	mu         sync.Mutex
	counters   map[string]*counter
	maxEntries int
}

type counter struct {
	count       int64
	windowStart time.Time
	lastSeen    time.Time
}

// MemoryStoreConfig configures the memory store.
type MemoryStoreConfig struct {
	// MaxEntries bounds the counter map; the stalest entry is evicted
	// when the bound is hit. Default: 100,000.
	MaxEntries int
}

// NewMemoryStore creates a memory store with default settings.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(MemoryStoreConfig{})
}

// NewMemoryStoreWithConfig creates a memory store with custom settings.
func NewMemoryStoreWithConfig(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100000
	}
	return &MemoryStore{
		counters:   make(map[string]*counter),
		maxEntries: cfg.MaxEntries,
	}
}

// Increment implements CounterStore. The whole read-reset-increment sequence
// runs under one lock, so concurrent increments of the same key serialise and
// no update is lost.
func (m *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok {
		if len(m.counters) >= m.maxEntries {
			m.evictStalestLocked()
		}
		c = &counter{windowStart: now}
		m.counters[key] = c
	} else if now.Sub(c.windowStart) >= window {
		c.count = 0
		c.windowStart = now
	}

	c.count++
	c.lastSeen = now
	return c.count, c.windowStart, nil
}

// Cleanup removes counters idle since before cutoff.
func (m *MemoryStore) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, c := range m.counters {
		if c.lastSeen.Before(cutoff) {
			delete(m.counters, key)
			removed++
		}
	}
	return removed, nil
}

// Close implements CounterStore. The memory store holds no resources.
func (m *MemoryStore) Close() error {
	return nil
}

// Size returns the number of tracked counters. Useful for tests and
// monitoring.
func (m *MemoryStore) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

// evictStalestLocked drops the least recently touched counter. Caller must
// hold the lock.
func (m *MemoryStore) evictStalestLocked() {
	var (
		stalestKey  string
		stalestSeen time.Time
		found       bool
	)
	for key, c := range m.counters {
		if !found || c.lastSeen.Before(stalestSeen) {
			stalestKey = key
			stalestSeen = c.lastSeen
			found = true
		}
	}
	if found {
		delete(m.counters, stalestKey)
	}
}
