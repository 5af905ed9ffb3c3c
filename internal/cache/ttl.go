package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value    any
	storedAt time.Time
}

// Cache memoizes call results for a bounded freshness window.
// Entries are keyed by function identity plus argument tuple, see Key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache whose entries expire after ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key builds a cache key from a function identity and its arguments.
func Key(fn string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, fn)
	for _, a := range args {
		switch v := a.(type) {
		case time.Time:
			parts = append(parts, v.Format(time.RFC3339))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, "|")
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.storedAt) > c.ttl
}

// Get returns a fresh value for key. Expired entries are evicted.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && c.expired(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key stamped with the current time.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge evicts every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Load returns the cached value for key or calls loader once across
// concurrent callers. Loader errors are returned but never stored.
// hit reports whether the value came from the cache.
func Load[T any](c *Cache, key string, loader func() (T, error)) (value T, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true, nil
		}
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := loader()
		if err != nil {
			return nil, err
		}
		c.Set(key, res)
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}
