// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// FLIGHT TABLE (THREAD-SAFE)
// =============================================================================

// flight is one outstanding streaming operation.
type flight struct {
	cancel context.CancelFunc
}

// flightTable tracks the single outstanding stream per conversation key and
// enforces preemption: registering a new flight cancels the previous one for
// the same key. Mutex-protected because preemption crosses goroutines.
type flightTable struct {
	mu      sync.Mutex
	flights map[string]*flight
}

func newFlightTable() *flightTable {
	return &flightTable{flights: make(map[string]*flight)}
}

// replace registers a new flight for key, cancelling any prior one.
func (t *flightTable) replace(key string, cancel context.CancelFunc) *flight {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.flights[key]; ok {
		prev.cancel()
	}
	f := &flight{cancel: cancel}
	t.flights[key] = f
	return f
}

// release removes f from the table if it is still the current flight for
// key. A flight that was preempted must not remove its successor.
func (t *flightTable) release(key string, f *flight) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.flights[key] == f {
		delete(t.flights, key)
	}
}

// cancelKey cancels the outstanding flight for key, if any.
func (t *flightTable) cancelKey(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.flights[key]; ok {
		f.cancel()
		delete(t.flights, key)
	}
}

// cancelAll cancels every outstanding flight.
func (t *flightTable) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, f := range t.flights {
		f.cancel()
		delete(t.flights, key)
	}
}

// active reports whether a flight is outstanding for key.
func (t *flightTable) active(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.flights[key]
	return ok
}
