package cache

import (
	"sync"
	"time"
)

// DefaultMaxAge is used when neither the reader nor the writer supplies a max-age.
const DefaultMaxAge = 5 * time.Minute

// Config controls a Cache instance.
type Config struct {
	// DefaultMaxAge applies when Get and Set both pass a non-positive max-age.
	// Zero means DefaultMaxAge.
	DefaultMaxAge time.Duration
}

type entry[V any] struct {
	data      V
	timestamp time.Time
	maxAge    time.Duration
}

// Cache is an in-memory key/value store with lazy, time-based expiry.
//
// Expired entries are removed when they are read, never by a background
// sweep. There is no capacity bound. Individual operations are safe for
// concurrent use, but a Get followed by a Set is not atomic: two callers that
// both miss will both refill the entry.
type Cache[V any] struct {
	mu            sync.Mutex
	entries       map[string]entry[V]
	defaultMaxAge time.Duration
	now           func() time.Time
}

// New returns an empty Cache configured by cfg.
func New[V any](cfg Config) *Cache[V] {
	maxAge := cfg.DefaultMaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache[V]{
		entries:       make(map[string]entry[V]),
		defaultMaxAge: maxAge,
		now:           time.Now,
	}
}

// Set stores value under key, overwriting any existing entry and stamping it
// with the current time. A positive maxAge is remembered with the entry and
// used by Get calls that do not supply their own.
func (c *Cache[V]) Set(key string, value V, maxAge time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		data:      value,
		timestamp: c.now(),
		maxAge:    maxAge,
	}
}

// Get returns the value stored under key if it is no older than maxAge.
// A non-positive maxAge falls back to the entry's own max-age, then to the
// cache default. Stale entries are deleted and reported absent.
func (c *Cache[V]) Get(key string, maxAge time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	limit := maxAge
	if limit <= 0 {
		limit = e.maxAge
	}
	if limit <= 0 {
		limit = c.defaultMaxAge
	}

	if c.now().Sub(e.timestamp) > limit {
		delete(c.entries, key)
		return zero, false
	}
	return e.data, true
}

// Invalidate removes key. Removing a missing key is a no-op.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of stored entries, including stale ones that have
// not been read since they expired.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
