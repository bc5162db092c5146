// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error kinds, sentinels, and the typed APIError.

package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind classifies an API error by its machine-readable code.
type Kind string

const (
	KindNetwork    Kind = "network_error"
	KindTimeout    Kind = "timeout_error"
	KindValidation Kind = "validation_error"
	KindAPI        Kind = "api_error"
)

// Sentinel errors for common failure modes.
var (
	// ErrNotConfigured indicates the client has no session token or base URL.
	ErrNotConfigured = errors.New("client not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired session).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the backend rejected the request for volume.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStreamClosed indicates the streamed response ended before the
	// terminal fragment arrived.
	ErrStreamClosed = errors.New("stream closed before completion")
)

// =============================================================================
// API ERROR
// =============================================================================

// APIError is the typed error returned for failed backend requests.
type APIError struct {
	Kind      Kind   // machine-readable classification
	Code      string // backend-provided error code, if any
	Message   string // human-readable description
	Status    int    // HTTP-like status, 0 for transport failures
	Retryable bool   // whether another attempt may succeed
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Network creates a transport-level error. Network failures are retryable.
func Network(msg string) *APIError {
	return &APIError{Kind: KindNetwork, Message: msg, Retryable: true}
}

// Timeout creates a timeout error. Timeouts are retryable.
func Timeout(msg string) *APIError {
	return &APIError{Kind: KindTimeout, Message: msg, Retryable: true}
}

// Validation creates a request validation error. Never retryable.
func Validation(msg string) *APIError {
	return &APIError{Kind: KindValidation, Message: msg, Status: http.StatusBadRequest}
}

// FromStatus creates an API error from an HTTP status and backend error body.
// 5xx and 429 responses are marked retryable.
func FromStatus(status int, code, msg string) *APIError {
	return &APIError{
		Kind:      KindAPI,
		Code:      code,
		Message:   msg,
		Status:    status,
		Retryable: status >= 500 || status == http.StatusTooManyRequests,
	}
}

// IsRetryable reports whether err should trigger another attempt.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}
