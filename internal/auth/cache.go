// Package auth implements per-job read authorization: the guest-access
// predicate over a job's event log, and a bounded cache of positive
// determinations.
package auth

import (
	"container/list"
	"sync"
)

// Cache memoizes positive authorization determinations per job id.
//
// Entries are created only after a successful positive determination.
// Negative or undetermined results are never cached: access can become
// valid later in a job's lifecycle (e.g. the job terminates and
// becomes world-readable), so caching a denial would cause permanent
// false denials.
//
// Eviction is strict least-recently-used by access time and triggers
// only on insert at capacity. Lookup counts as an access.
//
// Safe for concurrent use: the LRU touch-on-read mutates shared state,
// so all operations hold the mutex.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recently used
	index    map[uint64]*list.Element // job id -> element holding the id
}

// DefaultCacheCapacity bounds the cache when the configuration does
// not say otherwise.
const DefaultCacheCapacity = 1024

// NewCache creates a cache holding at most capacity entries.
// A non-positive capacity falls back to DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[uint64]*list.Element),
	}
}

// Lookup reports whether a positive determination is cached for id,
// touching the entry's recency on a hit.
func (c *Cache) Lookup(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[id]
	if !ok {
		return false
	}
	c.order.MoveToFront(elem)
	return true
}

// RecordGranted caches a positive determination for id, evicting the
// least recently used entry if the cache is at capacity.
func (c *Cache) RecordGranted(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[id]; ok {
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(uint64))
		}
	}

	c.index[id] = c.order.PushFront(id)
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
