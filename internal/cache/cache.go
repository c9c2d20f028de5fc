// Package cache provides a generic TTL cache with optional max-size
// eviction. Every noesis subsystem that needs result caching (reasoning
// chains, retrieval hits) reuses this one abstraction instead of growing
// its own ad-hoc map.
package cache

import (
	"sync"
	"time"

	"noesis/internal/logging"
)

// Cache is a process-local TTL cache. Expired entries are deleted lazily on
// access, never proactively swept. A race on the same key resolves as last
// write wins, which is acceptable because values for the same key within one
// TTL window are computed from the same inputs.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
	maxSize int // 0 means unbounded
	ttl     time.Duration

	hits   int64
	misses int64
}

type entry[V any] struct {
	value     V
	timestamp time.Time
}

// New creates a cache. maxSize <= 0 disables size-based eviction.
func New[K comparable, V any](maxSize int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached value for key if present and unexpired. An expired
// entry is removed on the spot.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if time.Since(e.timestamp) > c.ttl {
		delete(c.entries, key)
		c.misses++
		logging.Debugf(logging.CategoryCache, "expired entry evicted on read")
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the oldest entry if at capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if _, exists := c.entries[key]; !exists {
			c.evictOldest()
		}
	}
	c.entries[key] = &entry[V]{value: value, timestamp: time.Now()}
}

// evictOldest removes the entry with the earliest timestamp.
// Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest() {
	var oldestKey K
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.timestamp.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.timestamp
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Delete removes key if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
}

// Len reports the number of entries, including any not-yet-evicted expired ones.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports hit/miss counters since construction.
func (c *Cache[K, V]) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
