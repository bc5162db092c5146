// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// queue.go - The bounded pending list and terminal-state notifications.

package queue

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// =============================================================================
// REQUEST QUEUE
// =============================================================================

// DefaultMaxSize is the default bound on pending requests.
const DefaultMaxSize = 50

// Queue is a bounded FIFO of pending requests with thread-safe operations.
type Queue struct {
	// requests holds pending and completed requests in arrival order
	requests []*Request

	// maxSize is the maximum number of pending (queued) requests allowed
	maxSize int

	// mu protects concurrent access to the queue
	mu sync.RWMutex

	// notifyChan delivers notifications when requests reach terminal states
	notifyChan chan Notification
}

// Notification reports a request reaching a terminal state.
type Notification struct {
	RequestID   string
	Description string
	Status      Status
	Error       string
	Attempts    int
	Duration    time.Duration
}

// New creates a queue with the given maximum pending size.
// A maxSize of 0 or less falls back to DefaultMaxSize.
func New(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{
		requests:   make([]*Request, 0),
		maxSize:    maxSize,
		notifyChan: make(chan Notification, 100),
	}
}

// =============================================================================
// QUEUE OPERATIONS
// =============================================================================

// Add appends a request to the queue.
// Returns an error when the pending portion of the queue is full.
func (q *Queue) Add(req *Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := 0
	for _, r := range q.requests {
		if r.GetStatus() == StatusQueued {
			pending++
		}
	}
	if pending >= q.maxSize {
		return fmt.Errorf("queue is full: %d pending requests (max: %d)", pending, q.maxSize)
	}

	q.requests = append(q.requests, req)
	return nil
}

// Get retrieves a request by ID, or nil if not found.
func (q *Queue) Get(id string) *Request {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, r := range q.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Cancel cancels a request by ID.
// Returns true if the request was canceled.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, r := range q.requests {
		if r.ID == id {
			return r.Cancel()
		}
	}
	return false
}

// next pops the oldest queued request, marking it running atomically so a
// concurrent caller cannot dispatch it twice. Returns nil when nothing is
// pending.
func (q *Queue) next() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, r := range q.requests {
		if r.GetStatus() == StatusQueued {
			r.markStarted()
			return r
		}
	}
	return nil
}

// =============================================================================
// QUEUE QUERIES
// =============================================================================

// Pending returns the number of requests still waiting for dispatch.
func (q *Queue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	count := 0
	for _, r := range q.requests {
		if r.GetStatus() == StatusQueued {
			count++
		}
	}
	return count
}

// Len returns the total number of tracked requests.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.requests)
}

// Clear drops all requests that have reached a terminal state.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := make([]*Request, 0)
	for _, r := range q.requests {
		if !r.IsTerminal() {
			kept = append(kept, r)
		}
	}
	q.requests = kept
}

// Summary returns a formatted summary of the queue state.
func (q *Queue) Summary() string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	pending, running, completed, failed := 0, 0, 0, 0
	for _, r := range q.requests {
		switch r.GetStatus() {
		case StatusQueued:
			pending++
		case StatusRunning:
			running++
		case StatusComplete:
			completed++
		case StatusFailed:
			failed++
		}
	}
	return fmt.Sprintf("Pending: %d | Running: %d | Completed: %d | Failed: %d",
		pending, running, completed, failed)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notifications returns the channel on which terminal-state notifications
// are delivered.
func (q *Queue) Notifications() <-chan Notification {
	return q.notifyChan
}

// notify sends a notification without blocking the dispatcher.
func (q *Queue) notify(n Notification) {
	select {
	case q.notifyChan <- n:
	default:
		log.Printf("WARNING: Notification channel full, dropped notification for request %s (status: %s)",
			n.RequestID, n.Status)
	}
}
