// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"sync"
	"time"
)

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	prev      *lruEntry[K, V]
	next      *lruEntry[K, V]
	expiresAt time.Time
}

// LRU is a thread-safe least recently used cache with per-entry TTL.
// Get, Add and Remove are O(1); expired entries are dropped lazily.
//
// The Layer uses it to memoize point lookups (user by id) in front of the
// shared cache.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[K]*lruEntry[K, V]

	// head.next is the most recently used, tail.prev the least
	head *lruEntry[K, V]
	tail *lruEntry[K, V]

	hits   int64
	misses int64
}

// NewLRU creates an LRU with the given capacity and TTL.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	c := &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[K]*lruEntry[K, V], capacity),
		head:     &lruEntry[K, V]{},
		tail:     &lruEntry[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key if present and not expired.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		if c.now().After(entry.expiresAt) {
			c.removeEntry(entry)
			c.misses++
			var zero V
			return zero, false
		}
		c.moveToFront(entry)
		c.hits++
		return entry.value, true
	}

	c.misses++
	var zero V
	return zero, false
}

// Add inserts or refreshes key. The least recently used entry is evicted
// when the cache is full.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &lruEntry[K, V]{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Remove deletes key. Returns true if it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the number of entries, expired ones included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*lruEntry[K, V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns hit/miss counters and the current size.
func (c *LRU[K, V]) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRU[K, V]) addToFront(entry *lruEntry[K, V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU[K, V]) moveToFront(entry *lruEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRU[K, V]) removeEntry(entry *lruEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRU[K, V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
