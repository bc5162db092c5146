// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/chatcore/internal/apperr"
)

// newTestClient returns a client pointed at a test server with fast retries.
func newTestClient(srv *httptest.Server) *Client {
	c := New(srv.URL).WithRetryDelay(time.Millisecond)
	c.SetSession("test-session-token")
	return c
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestClient(srv).Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestNotConfigured(t *testing.T) {
	c := New("http://localhost:0")
	_, err := c.ListConversations(context.Background())
	if !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-session-token" {
			t.Errorf("Missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message_id":"m-1","model":"default","content":"hi","token_count":2}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "hi" || resp.MessageID != "m-1" {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":"bad_token","message":"expired"}}`, apperr.ErrAuthFailed},
		{"forbidden", http.StatusForbidden, `{"error":{"message":"no access"}}`, apperr.ErrAuthFailed},
		{"not found", http.StatusNotFound, `{"error":{"message":"gone"}}`, apperr.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, apperr.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(srv).WithMaxRetries(1)
			_, err := c.GetConversation(context.Background(), "c-1")
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestServerErrorIsTypedAndRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"boom","message":"internal"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv).WithMaxRetries(1)
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})

	var apiErr *apperr.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Code != "boom" {
		t.Errorf("Unexpected error fields: %+v", apiErr)
	}
	if !apiErr.Retryable {
		t.Error("Expected 5xx to be retryable")
	}
}

func TestValidationErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"empty_prompt","message":"prompt required"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), GenerateRequest{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 attempt for 400, got %d", got)
	}
}

// =============================================================================
// RETRY TESTS
// =============================================================================

func TestRetryOnTransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"message_id":"m-1","model":"default","content":"ok"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Unexpected content %q", resp.Content)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestRetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if got := calls.Load(); got != DefaultMaxRetries {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxRetries, got)
	}
}

func TestContextCancellationAbortsRetryLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(srv).WithRetryDelay(time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := c.Generate(ctx, GenerateRequest{Prompt: "x"})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Retry loop did not abort on cancellation")
	}
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestListConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"c-1","title":"First"},{"id":"c-2","title":"Second"}]}`))
	}))
	defer srv.Close()

	convs, err := newTestClient(srv).ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 2 || convs[0].ID != "c-1" {
		t.Errorf("Unexpected conversations: %+v", convs)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"default","name":"Default","context_length":8192,"default":true}]}`))
	}))
	defer srv.Close()

	models, err := newTestClient(srv).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || !models[0].Default {
		t.Errorf("Unexpected models: %+v", models)
	}
}

func TestSessionFingerprintNeverExposesToken(t *testing.T) {
	c := New("http://example.test")
	c.SetSession("secret-token-value")

	fp := c.SessionFingerprint()
	if fp == "secret-token-value" || len(fp) != 8 {
		t.Errorf("Fingerprint should be an 8-char hash, got %q", fp)
	}
	c.ClearSession()
	if c.SessionFingerprint() != "none" {
		t.Error("Expected 'none' after ClearSession")
	}
}

func TestBodyAtSizeLimitIsAccepted(t *testing.T) {
	const limit = 64

	exact := bytes.Repeat([]byte("a"), limit)
	body, err := readBodyLimited(bytes.NewReader(exact), limit)
	if err != nil {
		t.Fatalf("Body of exactly the limit should be accepted: %v", err)
	}
	if len(body) != limit {
		t.Errorf("len(body) = %d, want %d", len(body), limit)
	}

	over := bytes.Repeat([]byte("a"), limit+1)
	if _, err := readBodyLimited(bytes.NewReader(over), limit); err == nil {
		t.Error("Body over the limit should be rejected")
	}
}
