// Package cache holds short-lived generated content, such as field tooltips,
// in memory.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

func (e entry[V]) live(now time.Time) bool { return !now.After(e.expires) }

// Cache maps keys to values that expire after a per-entry TTL.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	loads   singleflight.Group
	now     func() time.Time
}

func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]entry[V]), now: time.Now}
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Get misses on expired entries; Prune reclaims them later.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !e.live(c.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrLoad serves key from the cache or runs load, sharing one call among
// concurrent callers. Only successful loads are stored.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.loads.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len counts stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prune deletes expired entries and reports how many went.
func (c *Cache[V]) Prune() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, e := range c.entries {
		if !e.live(now) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}
