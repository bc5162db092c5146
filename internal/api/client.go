// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// client.go - HTTP client for the chat backend REST API.

package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/chatcore/internal/apperr"
	"github.com/jeranaias/chatcore/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts for transient errors.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the fixed delay between retry attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	userAgent = "chatcore/0.1.0"
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all non-streaming backend requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests (no timeout,
	// context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Conversation is the backend's conversation resource.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is the backend's message resource.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// GenerateRequest is the request body for generate and stream endpoints.
type GenerateRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	System         string `json:"system,omitempty"`
}

// GenerateResponse is the non-streaming generation result.
type GenerateResponse struct {
	MessageID  string `json:"message_id"`
	Model      string `json:"model"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count,omitempty"`
}

// apiErrorResponse represents an error response body from the backend.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the chat backend API.
type Client struct {
	baseURL    string
	token      string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// New creates a client for the backend at baseURL. The session token may be
// empty; requests to authenticated endpoints then fail with ErrNotConfigured.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		timeout:    DefaultTimeout,
	}
}

// WithMaxRetries sets the maximum number of attempts for transient errors.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithRetryDelay sets the fixed delay between retry attempts.
func (c *Client) WithRetryDelay(d time.Duration) *Client {
	c.retryDelay = d
	return c
}

// WithTimeout sets the per-attempt deadline for non-streaming requests.
// Streaming requests are bounded by the caller's context only.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// SetSession installs the opaque session token for authenticated requests.
func (c *Client) SetSession(token string) {
	c.token = strings.TrimSpace(token)
}

// ClearSession drops the session token.
func (c *Client) ClearSession() {
	c.token = ""
}

// IsConfigured returns true if the client has a base URL and session token.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.token != ""
}

// SessionFingerprint returns a short SHA-256 fingerprint of the session
// token for logging. The token itself is never logged.
func (c *Client) SessionFingerprint() string {
	if c.token == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.token))
	return hex.EncodeToString(h[:4])
}

// setHeaders sets the required headers for backend requests.
func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// logRequest logs an API request without exposing sensitive data.
// Headers and bodies are never logged.
func (c *Client) logRequest(method, path string) {
	log.Printf("API Request: %s %s", method, path)
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(status int, duration time.Duration) {
	log.Printf("API Response: %d (%v)", status, duration)
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do performs one request with retries on retryable errors. A fixed delay
// separates attempts; context cancellation aborts the loop immediately.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		err := c.doOnce(ctx, method, path, reqBody, out)
		if err == nil {
			return nil
		}
		if !apperr.IsRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doOnce performs a single request and decodes the response into out.
func (c *Client) doOnce(ctx context.Context, method, path string, reqBody, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return apperr.Validation(fmt.Sprintf("encode request: %v", err))
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Validation(fmt.Sprintf("build request: %v", err))
	}
	c.setHeaders(req)
	c.logRequest(method, path)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	c.logResponse(resp.StatusCode, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusNoContent {
		return handleErrorResponse(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperr.Network(fmt.Sprintf("parse response: %v", err))
		}
	}
	return nil
}

// readResponse reads the response body with a size limit.
//
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	return readBodyLimited(resp.Body, MaxResponseSize)
}

// readBodyLimited reads at most limit bytes. One extra byte is read so a
// body of exactly limit bytes is accepted while anything larger is rejected.
func readBodyLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperr.Network(fmt.Sprintf("read response: %v", err))
	}
	if int64(len(body)) > limit {
		return nil, apperr.Network(fmt.Sprintf("response exceeded maximum size of %d bytes", limit))
	}
	return body, nil
}

// classifyTransportError maps a transport failure onto a typed error kind.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Timeout(err.Error())
	}
	return apperr.Network(err.Error())
}

// handleErrorResponse converts HTTP error responses to typed errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var parsed apiErrorResponse
	code, message := "", strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		code = parsed.Error.Code
		message = parsed.Error.Message
	}

	apiErr := apperr.FromStatus(statusCode, code, message)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", apperr.ErrAuthFailed, apiErr.Error())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, apiErr.Error())
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", apperr.ErrRateLimited, apiErr.Error())
	default:
		return apiErr
	}
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Health checks backend reachability. No authentication required.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListModels retrieves the models the backend can generate with.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	var out struct {
		Data []model.ModelInfo `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListConversations retrieves the caller's conversations.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	if !c.IsConfigured() {
		return nil, apperr.ErrNotConfigured
	}
	var out struct {
		Data []Conversation `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetConversation retrieves a single conversation by ID.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	if !c.IsConfigured() {
		return nil, apperr.ErrNotConfigured
	}
	var out Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateConversation creates a conversation with the given title and model.
func (c *Client) CreateConversation(ctx context.Context, title, modelID string) (*Conversation, error) {
	if !c.IsConfigured() {
		return nil, apperr.ErrNotConfigured
	}
	req := map[string]string{"title": title, "model": modelID}
	var out Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	if !c.IsConfigured() {
		return apperr.ErrNotConfigured
	}
	return c.do(ctx, http.MethodDelete, "/conversations/"+id, nil, nil)
}

// ListMessages retrieves the messages of a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if !c.IsConfigured() {
		return nil, apperr.ErrNotConfigured
	}
	var out struct {
		Data []Message `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Generate performs a non-streaming generation request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if !c.IsConfigured() {
		return nil, apperr.ErrNotConfigured
	}
	var out GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
