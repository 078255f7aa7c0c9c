package terrain

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/storm-windfield/internal/domain"
)

// CachedIndex wraps a roughness source with an in-memory LRU cache keyed on
// the coordinate rounded to 1e-6 degrees. Ring points only repeat across
// realizations that share a track, so the cache pays off when it holds at
// least one whole realization's lookups; smaller caches thrash.
type CachedIndex struct {
	inner   domain.Roughness
	cache   *lruCache
	lookups *prometheus.CounterVec // labels: result={hit,miss}; may be nil
}

// NewCachedIndex creates a cache decorator around a roughness source.
func NewCachedIndex(inner domain.Roughness, maxEntries int, lookups *prometheus.CounterVec) *CachedIndex {
	return &CachedIndex{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		lookups: lookups,
	}
}

// RoughnessAt implements domain.Roughness.
func (c *CachedIndex) RoughnessAt(lat, lon float64) float64 {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if z0, ok := c.cache.get(key); ok {
		c.observe("hit")
		return z0
	}
	c.observe("miss")
	z0 := c.inner.RoughnessAt(lat, lon)
	c.cache.put(key, z0)
	return z0
}

func (c *CachedIndex) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache of roughness values.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value float64
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
