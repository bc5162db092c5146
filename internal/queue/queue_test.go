// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatcore/internal/apperr"
)

func TestNewRequest(t *testing.T) {
	req := NewRequest("create conversation", func(ctx context.Context) error { return nil })

	if req.ID == "" {
		t.Error("Request ID should not be empty")
	}
	if req.Description != "create conversation" {
		t.Errorf("Expected description 'create conversation', got '%s'", req.Description)
	}
	if req.GetStatus() != StatusQueued {
		t.Errorf("Expected status Queued, got %s", req.GetStatus())
	}
}

func TestQueueBoundedSize(t *testing.T) {
	q := New(2)

	noop := func(ctx context.Context) error { return nil }
	if err := q.Add(NewRequest("a", noop)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := q.Add(NewRequest("b", noop)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := q.Add(NewRequest("c", noop)); err == nil {
		t.Error("Expected error adding to full queue")
	}
	if q.Pending() != 2 {
		t.Errorf("Expected 2 pending, got %d", q.Pending())
	}
}

func TestQueueDispatchOrder(t *testing.T) {
	q := New(10)

	first := NewRequest("first", nil)
	second := NewRequest("second", nil)
	q.Add(first)
	q.Add(second)

	if got := q.next(); got != first {
		t.Errorf("Expected first request dispatched first, got %v", got)
	}
	if got := q.next(); got != second {
		t.Errorf("Expected second request dispatched second, got %v", got)
	}
	if got := q.next(); got != nil {
		t.Errorf("Expected empty queue, got %v", got)
	}

	// Dispatch marks running, so the slot frees up for new work.
	if q.Pending() != 0 {
		t.Errorf("Expected 0 pending after dispatch, got %d", q.Pending())
	}
}

func TestQueueCancelPending(t *testing.T) {
	q := New(10)
	req := NewRequest("doomed", func(ctx context.Context) error { return nil })
	q.Add(req)

	if !q.Cancel(req.ID) {
		t.Error("Cancel should succeed for a pending request")
	}
	if req.GetStatus() != StatusCanceled {
		t.Errorf("Expected Canceled, got %s", req.GetStatus())
	}
	if q.Cancel(req.ID) {
		t.Error("Second cancel should fail")
	}
	if got := q.next(); got != nil {
		t.Errorf("Canceled request should not dispatch, got %v", got)
	}
}

func TestQueueClearKeepsPending(t *testing.T) {
	q := New(10)
	done := NewRequest("done", nil)
	pending := NewRequest("pending", nil)
	q.Add(done)
	q.Add(pending)
	done.markComplete()

	q.Clear()

	if q.Len() != 1 {
		t.Errorf("Expected 1 request after Clear, got %d", q.Len())
	}
	if q.Get(pending.ID) == nil {
		t.Error("Pending request should survive Clear")
	}
}

func TestRunnerExecutesRequest(t *testing.T) {
	q := New(10)
	runner := NewRunner(q).WithDispatchRate(rate.Inf, 1)
	runner.Start()
	defer runner.Stop()

	var ran atomic.Bool
	req := NewRequest("work", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	q.Add(req)

	n := waitNotification(t, q)
	if n.Status != StatusComplete {
		t.Errorf("Expected Complete notification, got %s (err: %s)", n.Status, n.Error)
	}
	if !ran.Load() {
		t.Error("Request function never ran")
	}
	if req.GetAttempts() != 1 {
		t.Errorf("Expected 1 attempt, got %d", req.GetAttempts())
	}
}

func TestRunnerRetriesRetryableFailures(t *testing.T) {
	q := New(10)
	runner := NewRunner(q).WithDispatchRate(rate.Inf, 1).WithRetryDelay(time.Millisecond)
	runner.Start()
	defer runner.Stop()

	var calls atomic.Int32
	req := NewRequest("flaky", func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return apperr.FromStatus(503, "server_error", "upstream unavailable")
		}
		return nil
	})
	q.Add(req)

	n := waitNotification(t, q)
	if n.Status != StatusComplete {
		t.Errorf("Expected eventual success, got %s (err: %s)", n.Status, n.Error)
	}
	if n.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", n.Attempts)
	}
}

func TestRunnerDoesNotRetryNonRetryable(t *testing.T) {
	q := New(10)
	runner := NewRunner(q).WithDispatchRate(rate.Inf, 1).WithRetryDelay(time.Millisecond)
	runner.Start()
	defer runner.Stop()

	var calls atomic.Int32
	req := NewRequest("invalid", func(ctx context.Context) error {
		calls.Add(1)
		return apperr.Validation("prompt must not be empty")
	})
	q.Add(req)

	n := waitNotification(t, q)
	if n.Status != StatusFailed {
		t.Errorf("Expected Failed, got %s", n.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected exactly 1 attempt for validation error, got %d", calls.Load())
	}
}

func TestRunnerBoundsAttempts(t *testing.T) {
	q := New(10)
	runner := NewRunner(q).WithDispatchRate(rate.Inf, 1).WithRetryDelay(time.Millisecond).WithMaxAttempts(2)
	runner.Start()
	defer runner.Stop()

	var calls atomic.Int32
	req := NewRequest("hopeless", func(ctx context.Context) error {
		calls.Add(1)
		return apperr.FromStatus(500, "server_error", "still broken")
	})
	q.Add(req)

	n := waitNotification(t, q)
	if n.Status != StatusFailed {
		t.Errorf("Expected Failed, got %s", n.Status)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls.Load())
	}
	if n.Error == "" {
		t.Error("Expected final error carried in notification")
	}
}

func TestRunnerCancelInFlight(t *testing.T) {
	q := New(10)
	runner := NewRunner(q).WithDispatchRate(rate.Inf, 1)
	runner.Start()
	defer runner.Stop()

	started := make(chan struct{})
	req := NewRequest("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	q.Add(req)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("Request never started")
	}
	if !q.Cancel(req.ID) {
		t.Error("Cancel should succeed for an in-flight request")
	}

	n := waitNotification(t, q)
	if n.Status != StatusCanceled {
		t.Errorf("Expected Canceled notification, got %s", n.Status)
	}
	if req.GetStatus() != StatusCanceled {
		t.Errorf("Expected request canceled, got %s", req.GetStatus())
	}
}

func waitNotification(t *testing.T, q *Queue) Notification {
	t.Helper()
	select {
	case n := <-q.Notifications():
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for notification")
		return Notification{}
	}
}

// Guard against regressions in the wrapped-error checks the retry loop
// depends on.
func TestRetryablePlumbing(t *testing.T) {
	if apperr.IsRetryable(errors.New("plain")) {
		t.Error("Plain errors should not be retryable")
	}
	if !apperr.IsRetryable(apperr.FromStatus(429, "rate_limited", "slow down")) {
		t.Error("429 should be retryable")
	}
}
