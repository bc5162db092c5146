// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat assembles streamed generation responses into messages.
//
// The engine consumes the fragment stream of a generation request and keeps
// exactly one logical assistant message up to date: the message is created
// when the first fragment with content arrives, every later fragment is
// appended and the full accumulated text republished, and the terminal
// fragment finalizes the message with its trailing metadata. Cancellation
// (user-initiated or by a superseding request for the same conversation)
// stops consumption and finalizes whatever partial content was already
// published; nothing is rolled back.
//
// One stream may be outstanding per conversation at a time. Starting a new
// one preempts the old (single-flight with preemption, keyed by
// conversation; it is not a queue).
package chat
