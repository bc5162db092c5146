// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the chat backend.
//
// The backend exposes a REST-style API (health, conversations, messages,
// generate, stream, models) plus a chunked line-delimited JSON response for
// streamed generation. The client wraps every failure in a typed error
// carrying an HTTP-like status, a machine-readable code, and a retryable
// flag; transient failures are retried with a fixed delay between attempts.
//
// Key Types:
//   - Client: the backend client; session token installed via SetSession
//   - CachedClient: read-through caching layer for listing endpoints
//   - StreamChunk: one fragment of a streamed generation response
//
// Responses are size-limited and connections pooled through shared
// transports; streaming requests use a transport with no client timeout and
// are bounded by the caller's context instead.
package api
