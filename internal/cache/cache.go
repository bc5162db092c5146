// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cache.go - Keyed TTL store with creation-time eviction and sweeping.

package cache

import (
	"context"
	"sync"
	"time"
)

// Defaults applied when a limit is zero or negative.
const (
	DefaultMaxEntries = 500
	DefaultTTL        = 5 * time.Minute

	// DefaultSweepInterval is how often the background sweep removes
	// expired entries, independent of access patterns.
	DefaultSweepInterval = 60 * time.Second
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is a cached value with its creation timestamp and time-to-live.
type Entry struct {
	Key       string
	Value     any
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is past its TTL at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) >= e.TTL
}

// =============================================================================
// CACHE
// =============================================================================

// Cache is a bounded map from string key to Entry.
//
// The client runtime is effectively single-threaded per context, but the
// sweep runs on its own goroutine, so a mutex guards the map anyway.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	maxEntries int
	defaultTTL time.Duration

	// Statistics
	hits   int
	misses int

	// now is replaceable in tests.
	now func() time.Time
}

// Stats holds cache statistics.
type Stats struct {
	Hits       int
	Misses     int
	EntryCount int
	MaxEntries int
	HitRate    float64
}

// New creates a cache bounded to maxEntries with the given default TTL.
// Non-positive arguments fall back to the package defaults.
func New(maxEntries int, defaultTTL time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Set inserts or overwrites an entry with the default TTL.
// Overwriting resets the entry's creation time.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL inserts or overwrites an entry with an explicit TTL.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict before inserting a genuinely new key at capacity.
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: c.now(),
		TTL:       ttl,
	}
}

// Get returns the value for key if present and unexpired. A stale entry is
// removed as a side effect and reported as absent; expiry is not an error.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if entry.Expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.Value, true
}

// Delete removes a single entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := 0.0
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		EntryCount: len(c.entries),
		MaxEntries: c.maxEntries,
		HitRate:    hitRate,
	}
}

// Entries returns a copy of all live entries. Used by the snapshot store.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.Expired(now) {
			out = append(out, *e)
		}
	}
	return out
}

// Restore inserts an entry with an explicit creation time, preserving the
// remaining TTL. Entries already expired are ignored.
func (c *Cache) Restore(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Expired(c.now()) {
		return
	}
	if _, exists := c.entries[e.Key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	copied := e
	c.entries[e.Key] = &copied
}

// =============================================================================
// EVICTION AND SWEEP
// =============================================================================

// evictOldestLocked removes the entry with the smallest creation timestamp.
// Ties are broken arbitrarily. Must hold the lock.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true

	for key, e := range c.entries {
		if first || e.CreatedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.CreatedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Sweep removes all expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweep runs Sweep every interval until the context is cancelled.
// Non-positive intervals fall back to DefaultSweepInterval.
func (c *Cache) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}
