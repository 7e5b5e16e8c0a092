// Package cache is a flat in-memory key/value store with per-entry TTL.
//
// HOW ENTRIES LEAVE THE CACHE:
//
//  1. Lazily: Get drops an expired entry it happens to read.
//  2. By sweep: Set walks the whole map and drops every expired entry, at
//     most once per sweepInterval. Keys nobody reads again still go away.
//  3. By eviction: when the cache holds maxSize entries and a new key
//     arrives (after a sweep), one arbitrary entry is evicted to make room.
//
// The public genre endpoints accept any genre name, so the cache must stay
// bounded no matter what clients ask for.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxSize bounds a cache created without WithMaxSize.
	DefaultMaxSize = 1000

	sweepInterval = time.Minute
)

// Memory is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	maxSize   int
	lastSweep time.Time

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	expired   int64
	evictions int64
}

// Option configures a Memory.
type Option func(*Memory)

// WithMaxSize caps the number of entries. Non-positive values keep the default.
func WithMaxSize(n int) Option {
	return func(c *Memory) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Expired   int64 `json:"expired"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// NewMemory creates an empty cache.
func NewMemory(opts ...Option) *Memory {
	return NewMemoryWithClock(time.Now, opts...)
}

// NewMemoryWithClock creates a cache that reads the time from now.
func NewMemoryWithClock(now func() time.Time, opts ...Option) *Memory {
	c := &Memory{
		entries:   make(map[string]entry),
		now:       now,
		maxSize:   DefaultMaxSize,
		lastSweep: now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key, or false if it is absent or expired.
func (c *Memory) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		atomic.AddInt64(&c.misses, 1)
		c.dropExpired(key)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl deletes the key.
func (c *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(key)
		return
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) >= sweepInterval {
		c.sweepLocked(now)
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.sweepLocked(now)
		if len(c.entries) >= c.maxSize {
			for k := range c.entries {
				delete(c.entries, k)
				atomic.AddInt64(&c.evictions, 1)
				break
			}
		}
	}

	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	atomic.AddInt64(&c.sets, 1)
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Memory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		atomic.AddInt64(&c.deletes, 1)
	}
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Memory) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Expired:   atomic.LoadInt64(&c.expired),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
	}
}

// dropExpired deletes key only if it is still expired; a concurrent Set may
// have replaced it since Get looked.
func (c *Memory) dropExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		atomic.AddInt64(&c.expired, 1)
	}
}

// sweepLocked drops every entry expired at now. c.mu must be held.
func (c *Memory) sweepLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			atomic.AddInt64(&c.expired, 1)
		}
	}
	c.lastSweep = now
}
