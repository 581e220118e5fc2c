// Package cache implements the proxy's bounded LRU response cache: a
// byte-budgeted, RWMutex-guarded store keyed by normalized URL. Grounded on
// the intrusive doubly-linked list and RWMutex discipline of
// MiraiMindz-watt/capacitor's in-memory cache, adapted from a generic
// count/TTL-bounded cache to a byte-size-bounded, GET-response-shaped one.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/flynnbui/go-proxy/internal/core/domain"
)

type entry struct {
	value *domain.CacheEntry
	node  *lruNode[string]
}

// Cache is a bounded LRU keyed by normalized URL, budgeted by total byte
// size rather than entry count.
type Cache struct {
	maxObjectBytes int64
	maxCacheBytes  int64

	mu      sync.RWMutex
	entries map[string]*entry
	lru     *lruList[string]
	size    int64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New constructs a Cache with the given per-object and total byte budgets.
func New(maxObjectBytes, maxCacheBytes int64) *Cache {
	return &Cache{
		maxObjectBytes: maxObjectBytes,
		maxCacheBytes:  maxCacheBytes,
		entries:        make(map[string]*entry),
		lru:            newLRUList[string](),
	}
}

// Get returns a shared, immutable snapshot of the cached entry for key, if
// present, touching its recency. Hit/miss counters are updated atomically.
func (c *Cache) Get(key string) (*domain.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.lru.moveToFront(e.node)
	c.hits.Add(1)
	return e.value, true
}

// Put admits entry into the cache iff IsAdmissible and its size fits within
// maxObjectBytes, evicting least-recently-used entries until it fits within
// maxCacheBytes. Returns whether it was admitted.
func (c *Cache) Put(ce *domain.CacheEntry) bool {
	if !IsAdmissible(ce) || ce.SizeBytes > c.maxObjectBytes {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[ce.Key]; ok {
		c.lru.remove(existing.node)
		c.size -= existing.value.SizeBytes
		delete(c.entries, ce.Key)
	}

	for c.size+ce.SizeBytes > c.maxCacheBytes && c.lru.len() > 0 {
		lru := c.lru.back()
		c.lru.remove(lru)
		if victim, ok := c.entries[lru.key]; ok {
			c.size -= victim.value.SizeBytes
			delete(c.entries, lru.key)
		}
	}

	node := c.lru.pushFront(ce.Key)
	c.entries[ce.Key] = &entry{value: ce, node: node}
	c.size += ce.SizeBytes
	return true
}

// Stats returns a consistent snapshot of entries, size, hits and misses.
func (c *Cache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return domain.CacheStats{
		Entries: int64(len(c.entries)),
		Bytes:   c.size,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Clear removes all entries. Hit/miss counters are left untouched: the
// proxy's semantics treat them as process-lifetime counters, not
// per-generation ones.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.lru = newLRUList[string]()
	c.size = 0
}

// IsAdmissible reports whether ce qualifies for caching: GET method
// (implied by callers only constructing entries for GET responses) and
// status exactly 200. Size-bound checking against maxObjectBytes happens in
// Put, since that bound is cache-instance-specific.
func IsAdmissible(ce *domain.CacheEntry) bool {
	return ce != nil && ce.StatusCode == 200
}
