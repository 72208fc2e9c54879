package transform

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/ggmap/dekker"
)

// DefaultCacheLimit is the soft limit used by [NewCache] when limit <= 0.
const DefaultCacheLimit = 64

// cacheKey identifies a composed transform. Matrices are compared
// element-wise, so +0 and -0 hit the same entry.
type cacheKey struct {
	model, view, projection mgl64.Mat4
}

type cacheEntry struct {
	value dekker.Mat4
	atime int64
}

// Cache memoizes [Build] results for repeated matrix triples, which is the
// common case when many batches share one camera.
//
// When the cache grows past its soft limit the least recently used quarter
// of the entries is evicted.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[cacheKey]*cacheEntry
	softLimit int
	tick      int64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats reports cache usage.
type CacheStats struct {
	Len      int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// NewCache creates a transform cache holding about limit entries.
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &Cache{
		entries:   make(map[cacheKey]*cacheEntry),
		softLimit: limit,
	}
}

// Build returns the split transform for the triple, composing it on a miss.
// Failed builds are not cached.
func (c *Cache) Build(model, view, projection mgl64.Mat4) (dekker.Mat4, error) {
	key := cacheKey{model, view, projection}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.tick++
		e.atime = c.tick
		c.hits.Add(1)
		return e.value, nil
	}
	c.misses.Add(1)

	m, err := Build(model, view, projection)
	if err != nil {
		return dekker.Mat4{}, err
	}

	c.tick++
	c.entries[key] = &cacheEntry{value: m, atime: c.tick}
	if len(c.entries) > c.softLimit {
		c.evictOldest()
	}
	return m, nil
}

// Len returns the number of cached transforms.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry and resets the statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]*cacheEntry)
	c.tick = 0
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	return CacheStats{
		Len:      n,
		Capacity: c.softLimit,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}

// evictOldest trims the cache to three quarters of its soft limit.
// Caller must hold c.mu.
func (c *Cache) evictOldest() {
	target := max(c.softLimit*3/4, 1)
	toEvict := len(c.entries) - target
	if toEvict <= 0 {
		return
	}

	type aged struct {
		key   cacheKey
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.atime})
	}
	slices.SortFunc(all, func(a, b aged) int { return int(a.atime - b.atime) })
	for _, e := range all[:toEvict] {
		delete(c.entries, e.key)
	}
}
