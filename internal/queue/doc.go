// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package queue provides a bounded FIFO of pending backend requests with
// fixed-delay, bounded-attempt retry.
//
// Key Types:
//   - Queue: the bounded pending list; Add rejects when full
//   - Request: one unit of work with attempt and lifecycle tracking
//   - Runner: drains the queue in order, pacing dispatch with a token
//     bucket and retrying only errors marked retryable
//
// Terminal states (complete, failed, canceled) are announced on a
// notification channel so callers can surface them without polling.
package queue
