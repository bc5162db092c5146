// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// REQUEST STATUS
// =============================================================================

// Status represents the current state of a queued request.
type Status string

const (
	// StatusQueued indicates the request is waiting to be dispatched
	StatusQueued Status = "Queued"

	// StatusRunning indicates the request is currently executing
	StatusRunning Status = "Running"

	// StatusComplete indicates the request finished successfully
	StatusComplete Status = "Complete"

	// StatusFailed indicates the request exhausted its attempts
	StatusFailed Status = "Failed"

	// StatusCanceled indicates the request was canceled before completing
	StatusCanceled Status = "Canceled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// =============================================================================
// REQUEST STRUCTURE
// =============================================================================

// Fn is the unit of work a request carries. It is invoked once per attempt
// and must honor context cancellation.
type Fn func(ctx context.Context) error

// Request represents one pending backend call awaiting dispatch.
type Request struct {
	// ID is a unique identifier for this request
	ID string

	// Description is a human-readable label (e.g. "create conversation")
	Description string

	// Status is the current state of the request
	Status Status

	// Attempts is how many times the request has been executed so far
	Attempts int

	// StartTime is when the first attempt began
	StartTime time.Time

	// EndTime is when the request reached a terminal state
	EndTime time.Time

	// Error is the message from the last failed attempt
	Error string

	// fn performs the actual work
	fn Fn

	// cancel is the context cancel function for the in-flight attempt
	cancel context.CancelFunc

	// mu protects concurrent access to the request
	mu sync.RWMutex
}

// NewRequest creates a queued request wrapping the given work function.
func NewRequest(description string, fn Fn) *Request {
	return &Request{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StatusQueued,
		fn:          fn,
	}
}

// =============================================================================
// REQUEST METHODS
// =============================================================================

// GetStatus returns the current status (thread-safe).
func (r *Request) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// GetAttempts returns how many attempts have run (thread-safe).
func (r *Request) GetAttempts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Attempts
}

// GetError returns the last error message (thread-safe).
func (r *Request) GetError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Error
}

// markStarted records the start of the first attempt.
func (r *Request) markStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusRunning
	if r.StartTime.IsZero() {
		r.StartTime = time.Now()
	}
}

// recordAttempt increments the attempt counter.
func (r *Request) recordAttempt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts++
}

// markComplete records a successful terminal state.
func (r *Request) markComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusComplete
	r.EndTime = time.Now()
}

// markFailed records a failed terminal state with the final error.
func (r *Request) markFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusFailed
	if err != nil {
		r.Error = err.Error()
	}
	r.EndTime = time.Now()
}

// markCanceled records a canceled terminal state.
func (r *Request) markCanceled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusCanceled
	r.EndTime = time.Now()
}

// setCancelFunc stores the cancel function for the in-flight attempt.
func (r *Request) setCancelFunc(cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel = cancel
}

// Cancel cancels the request if it is queued or running.
// Returns true if the request transitioned to canceled.
func (r *Request) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != StatusQueued && r.Status != StatusRunning {
		return false
	}

	if r.cancel != nil {
		r.cancel()
	}

	r.Status = StatusCanceled
	r.EndTime = time.Now()
	return true
}

// Duration returns how long the request has been running or took to finish.
func (r *Request) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.StartTime.IsZero() {
		return 0
	}
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// IsTerminal returns true once the request reached a terminal state.
func (r *Request) IsTerminal() bool {
	status := r.GetStatus()
	return status == StatusComplete || status == StatusFailed || status == StatusCanceled
}

// Summary returns a one-line summary of the request.
func (r *Request) Summary() string {
	status := r.GetStatus()
	summary := fmt.Sprintf("[%s] %s - %s", r.ID[:8], r.Description, status)
	if d := r.Duration(); d > 0 {
		summary += fmt.Sprintf(" (%.1fs)", d.Seconds())
	}
	return summary
}
