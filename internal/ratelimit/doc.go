// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ratelimit provides sliding-window admission control keyed by string.
//
// A window holds the timestamps of recent requests for one key; a request is
// admitted iff fewer than the limit fall inside the window, and admission
// records the current timestamp in the same step. Rejection is an admission
// decision, not an error: callers decide whether to defer, retry later, or
// surface a message.
package ratelimit
