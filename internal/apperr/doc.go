// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperr defines the error types shared by the client layers.
//
// A small fixed set of error kinds exists (network, timeout, validation,
// generic API error), distinguished by machine-readable code rather than by
// class hierarchy depth. Errors carry an HTTP-like status and a retryable
// flag so callers can decide whether another attempt is worthwhile.
//
// Key Types:
//   - APIError: the typed error for failed backend requests
//   - Kind: machine-readable classification of an APIError
//   - IsRetryable: dispatch helper honoring wrapping and sentinels
package apperr
