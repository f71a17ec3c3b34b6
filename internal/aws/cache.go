package aws

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value    V
	expires  time.Time
	inserted time.Time
}

type ttlCache[V any] struct {
	mu       sync.RWMutex
	ttl      time.Duration
	capacity int
	now      func() time.Time
	data     map[string]cacheEntry[V]
}

func newTTLCache[V any](ttl time.Duration, capacity int) *ttlCache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if capacity <= 0 {
		capacity = 16
	}
	return &ttlCache[V]{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		data:     make(map[string]cacheEntry[V]),
	}
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return entry.value, true
}

// set evicts the oldest entry when the cache is full.
func (c *ttlCache[V]) set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.data[key]; !exists && len(c.data) >= c.capacity {
		var oldestKey string
		var oldest time.Time
		first := true
		for k, v := range c.data {
			if first || v.inserted.Before(oldest) {
				oldestKey = k
				oldest = v.inserted
				first = false
			}
		}
		delete(c.data, oldestKey)
	}
	now := c.now()
	c.data[key] = cacheEntry[V]{
		value:    value,
		expires:  now.Add(c.ttl),
		inserted: now,
	}
}
