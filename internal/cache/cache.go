// Package cache keeps previously fetched analysis results for reuse.
//
// Entries never expire on their own. Staleness is advisory: IsStale tells the
// caller an entry is old, and the caller decides whether to show it, refetch it,
// or both.
package cache

import (
	"sync"
	"time"

	"github.com/vietddude/trendcore/internal/metrics"
)

// Entry is one cached result.
type Entry struct {
	Key       Key
	Payload   any
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// StalenessPolicy decides when an entry counts as stale.
type StalenessPolicy struct {
	// MaxAge is the age after which an entry is stale. Zero means never stale.
	MaxAge time.Duration
}

// Cache stores results keyed by Key. It is safe for concurrent use.
type Cache struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[Key]Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source used for FetchedAt and staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		now:     time.Now,
		entries: make(map[Key]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the entry stored under key. EmptyKey always misses.
func (c *Cache) Lookup(key Key) (Entry, bool) {
	if key == EmptyKey {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return Entry{}, false
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return entry, ok
}

// Store replaces whatever is stored under key with payload.
// Storing under EmptyKey does nothing.
func (c *Cache) Store(key Key, payload any) Entry {
	entry := Entry{Key: key, Payload: payload, FetchedAt: c.now()}
	if key == EmptyKey {
		return entry
	}

	c.mu.Lock()
	_, existed := c.entries[key]
	c.entries[key] = entry
	c.mu.Unlock()

	if !existed {
		metrics.CacheEntries.Inc()
	}
	return entry
}

// Invalidate removes the entry under key, forcing the next lookup to miss.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		metrics.CacheEntries.Dec()
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IsStale reports whether entry is older than policy allows.
func (c *Cache) IsStale(entry Entry, policy StalenessPolicy) bool {
	if policy.MaxAge <= 0 {
		return false
	}
	return entry.Age(c.now()) > policy.MaxAge
}
