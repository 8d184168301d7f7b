// Package cache provides an explicit, injectable TTL cache for assembled
// read-models. It is owned by the orchestration layer; the insights engine
// itself stays pure and recomputes on every call.
package cache

import (
	"sync"
	"time"
)

// Cache is a get/set cache with per-entry TTL.
type Cache interface {
	// Get returns the cached value for key and whether a live entry exists.
	Get(key string) (any, bool)

	// Set stores value under key for ttl. A non-positive ttl stores nothing.
	Set(key string, value any, ttl time.Duration)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-memory Cache suitable for single-instance deployments.
// Expired entries are dropped lazily on read and swept opportunistically
// on write.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time // swappable for tests
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the live entry for key, dropping it if expired.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl and sweeps any expired entries.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

// None is a Cache that never stores anything. Useful to disable caching
// without branching at call sites.
type None struct{}

func (None) Get(string) (any, bool)         { return nil, false }
func (None) Set(string, any, time.Duration) {}
