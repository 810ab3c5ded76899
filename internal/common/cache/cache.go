package cache

import (
	"container/list"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Stats reports the size and lifetime counters of a LocalCache
type Stats struct {
	Size        int    `json:"size"`
	Capacity    int    `json:"capacity"`
	TTLSeconds  int64  `json:"ttl_seconds"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

// LocalCache is an in-memory cache with per-item TTL and a capacity bound.
// When full, the entry inserted earliest is evicted first. Items live in a
// go-cache store with its janitor disabled, so every removal happens under
// mu and is mirrored in the insertion-order list.
type LocalCache[V any] struct {
	mu       sync.Mutex
	items    *gocache.Cache
	order    *list.List
	index    map[string]*list.Element
	ttl      time.Duration
	capacity int

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// NewLocalCache creates a cache holding at most capacity entries for ttl each
func NewLocalCache[V any](ttl time.Duration, capacity int) *LocalCache[V] {
	if capacity < 1 {
		capacity = 1
	}
	c := &LocalCache[V]{
		items:    gocache.New(ttl, 0),
		order:    list.New(),
		index:    make(map[string]*list.Element),
		ttl:      ttl,
		capacity: capacity,
	}
	// Called synchronously by Delete and DeleteExpired while mu is held.
	c.items.OnEvicted(func(key string, _ interface{}) {
		if el, ok := c.index[key]; ok {
			c.order.Remove(el)
			delete(c.index, key)
		}
	})
	return c
}

// Get returns the value stored under key. An expired entry counts as a
// miss and is removed.
func (c *LocalCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	raw, found := c.items.Get(key)
	if !found {
		if _, stale := c.index[key]; stale {
			c.items.Delete(key)
			c.expirations++
		}
		c.misses++
		return zero, false
	}

	value, ok := raw.(V)
	if !ok {
		c.misses++
		return zero, false
	}
	c.hits++
	return value, true
}

// Set stores value under key with the cache's TTL
func (c *LocalCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl. Expired entries are purged
// first, then the oldest entries are evicted until there is room.
// Re-inserting an existing key moves it to the back of the eviction order.
func (c *LocalCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked()

	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.items.Delete(oldest.Value.(string))
		c.evictions++
	}

	c.items.Set(key, value, ttl)
	c.index[key] = c.order.PushBack(key)
}

// PurgeExpired removes every expired entry and returns how many were removed
func (c *LocalCache[V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked()
}

func (c *LocalCache[V]) purgeLocked() int {
	before := c.order.Len()
	c.items.DeleteExpired()
	removed := before - c.order.Len()
	c.expirations += uint64(removed)
	return removed
}

// Clear removes all entries. Counters are kept.
func (c *LocalCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Flush()
	c.order.Init()
	c.index = make(map[string]*list.Element)
}

// Stats returns a snapshot of the cache counters
func (c *LocalCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:        c.order.Len(),
		Capacity:    c.capacity,
		TTLSeconds:  int64(c.ttl / time.Second),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}
