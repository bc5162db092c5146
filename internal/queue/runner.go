// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatcore/internal/apperr"
)

// =============================================================================
// DISPATCH DEFAULTS
// =============================================================================

const (
	// DefaultMaxAttempts bounds retries per request
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed pause between attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultDispatchRate limits how many requests start per second
	DefaultDispatchRate = rate.Limit(5)

	// pollInterval is how often the runner checks for pending requests
	pollInterval = 50 * time.Millisecond
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner dispatches queued requests one at a time, pacing dispatch with a
// token-bucket limiter and retrying failed attempts a bounded number of
// times with a fixed delay. Retries happen only for errors the API layer
// marks retryable; everything else fails immediately.
type Runner struct {
	queue       *Queue
	limiter     *rate.Limiter
	maxAttempts int
	retryDelay  time.Duration

	wg      sync.WaitGroup
	stop    chan struct{}
	stopped atomic.Bool
}

// NewRunner creates a runner with default pacing and retry settings.
func NewRunner(queue *Queue) *Runner {
	return &Runner{
		queue:       queue,
		limiter:     rate.NewLimiter(DefaultDispatchRate, 1),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		stop:        make(chan struct{}),
	}
}

// WithMaxAttempts overrides the attempt bound.
func (r *Runner) WithMaxAttempts(n int) *Runner {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

// WithRetryDelay overrides the fixed delay between attempts.
func (r *Runner) WithRetryDelay(d time.Duration) *Runner {
	if d >= 0 {
		r.retryDelay = d
	}
	return r
}

// WithDispatchRate overrides the dispatch pacing.
func (r *Runner) WithDispatchRate(limit rate.Limit, burst int) *Runner {
	r.limiter = rate.NewLimiter(limit, burst)
	return r
}

// =============================================================================
// RUNNER LIFECYCLE
// =============================================================================

// Start begins dispatching requests from the queue.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.processLoop()
}

// Stop gracefully stops the runner, waiting for the in-flight request.
func (r *Runner) Stop() {
	if r.stopped.Swap(true) {
		return
	}
	close(r.stop)
	r.wg.Wait()
}

// =============================================================================
// DISPATCH
// =============================================================================

func (r *Runner) processLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			for {
				if r.stopped.Load() {
					return
				}
				req := r.queue.next()
				if req == nil {
					break
				}
				r.execute(req)
			}
		}
	}
}

// execute runs a single request through its attempt budget.
func (r *Runner) execute(req *Request) {
	ctx, cancel := context.WithCancel(context.Background())
	req.setCancelFunc(cancel)
	defer cancel()

	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if werr := r.limiter.Wait(ctx); werr != nil {
			err = werr
			break
		}

		req.recordAttempt()
		err = req.fn(ctx)
		if err == nil {
			req.markComplete()
			r.queue.notify(Notification{
				RequestID:   req.ID,
				Description: req.Description,
				Status:      StatusComplete,
				Attempts:    req.GetAttempts(),
				Duration:    req.Duration(),
			})
			return
		}

		if !apperr.IsRetryable(err) || attempt == r.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(r.retryDelay):
			continue
		}
		break
	}

	if ctx.Err() == context.Canceled {
		// Cancel() already moved the request to its terminal state.
		r.queue.notify(Notification{
			RequestID:   req.ID,
			Description: req.Description,
			Status:      StatusCanceled,
			Attempts:    req.GetAttempts(),
			Duration:    req.Duration(),
		})
		return
	}

	req.markFailed(err)
	r.queue.notify(Notification{
		RequestID:   req.ID,
		Description: req.Description,
		Status:      StatusFailed,
		Error:       req.GetError(),
		Attempts:    req.GetAttempts(),
		Duration:    req.Duration(),
	})
}
