// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// Key Types:
//   - Conversation: ordered message history with a derived title and a
//     bounded length
//   - Message: one utterance; streaming messages accumulate content until
//     finalized, then carry generation stats (token count, TTFT, tokens/sec)
//   - ModelInfo: a model the backend can generate with
package model
