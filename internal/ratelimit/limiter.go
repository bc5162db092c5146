// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// limiter.go - Per-key timestamp windows and the admission check.

package ratelimit

import (
	"sync"
	"time"
)

// =============================================================================
// LIMITER
// =============================================================================

// Limiter implements a sliding window rate limiter per key.
type Limiter struct {
	// requests maps keys to their request timestamps.
	requests map[string][]time.Time

	// limit is the maximum number of requests per window.
	limit int

	// window is the time window for rate limiting.
	window time.Duration

	// mu protects concurrent access to the requests map.
	mu sync.Mutex

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Limiter admitting at most limit requests per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Default returns a Limiter with default settings: 30 requests per minute.
func Default() *Limiter {
	return New(30, time.Minute)
}

// Allow checks whether a request for the given key should be admitted.
// When admitted, the current timestamp is recorded as part of the same call,
// so check-and-record is atomic from the caller's perspective.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	valid := l.pruneLocked(key, now)

	if len(valid) >= l.limit {
		l.requests[key] = valid
		return false
	}

	l.requests[key] = append(valid, now)
	return true
}

// Remaining returns the number of requests left in the window for key.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.limit - len(l.pruneLocked(key, l.now()))
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Clear resets all windows.
func (l *Limiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = make(map[string][]time.Time)
}

// pruneLocked returns key's timestamps still inside the window. Must hold
// the lock.
func (l *Limiter) pruneLocked(key string, now time.Time) []time.Time {
	windowStart := now.Add(-l.window)

	timestamps := l.requests[key]
	valid := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	return valid
}

// Cleanup drops keys whose windows have fully drained. Intended to be run
// periodically by the owner to bound memory for long-lived limiters.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.requests {
		valid := l.pruneLocked(key, now)
		if len(valid) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = valid
		}
	}
}
