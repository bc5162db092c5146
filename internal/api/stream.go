// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/chatcore/internal/apperr"
)

// =============================================================================
// STREAM TYPES
// =============================================================================

// StreamChunk is a single fragment of a streamed generation response.
// The transport delivers fragments in order; a chunk with Done set is the
// terminal fragment and carries trailing metadata.
type StreamChunk struct {
	Content    string `json:"content"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	Model      string `json:"model,omitempty"`

	// Trailing metadata, only present on the terminal chunk.
	PromptTokens     int   `json:"prompt_tokens,omitempty"`
	CompletionTokens int   `json:"completion_tokens,omitempty"`
	TotalDurationNS  int64 `json:"total_duration,omitempty"`

	// Error is set for channel-based streaming when the transport fails
	// mid-stream. Never populated from the wire.
	Error error `json:"-"`
}

// StreamCallback is the function type called for each received chunk.
type StreamCallback func(chunk StreamChunk)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	model       string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the terminal chunk arrives, the stream ends, or the context
// is cancelled. Cancellation is checked before each chunk is consumed.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					return apperr.ErrStreamClosed
				}
				return err
			}
			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single line from the stream.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
			return nil, io.EOF
		}
		if len(line) == 0 {
			return nil, err
		}
		// Fall through and try to parse the final unterminated line.
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var chunk StreamChunk
	if err := json.Unmarshal(line, &chunk); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if chunk.Model != "" {
		s.model = chunk.Model
	} else {
		chunk.Model = s.model
	}
	if chunk.Content != "" {
		s.accumulator.WriteString(chunk.Content)
	}
	return &chunk, nil
}

// Accumulated returns all content seen so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// =============================================================================
// STREAMING ENDPOINT
// =============================================================================

// GenerateStream performs a streaming generation request, invoking callback
// for each received chunk. The request runs on the shared streaming client,
// which has no timeout; lifetime is controlled entirely by ctx.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest, callback StreamCallback) error {
	if !c.IsConfigured() {
		return apperr.ErrNotConfigured
	}

	encoded, err := json.Marshal(req)
	if err != nil {
		return apperr.Validation(fmt.Sprintf("encode request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate/stream", bytes.NewReader(encoded))
	if err != nil {
		return apperr.Validation(fmt.Sprintf("build request: %v", err))
	}
	c.setHeaders(httpReq)
	c.logRequest(http.MethodPost, "/generate/stream")

	start := time.Now()
	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := readResponse(resp)
		if readErr != nil {
			return readErr
		}
		c.logResponse(resp.StatusCode, time.Since(start))
		return handleErrorResponse(resp.StatusCode, body)
	}

	err = NewStreamReader(resp.Body).Process(ctx, callback)
	c.logResponse(resp.StatusCode, time.Since(start))
	return err
}

// GenerateStreamChan performs a streaming generation request and delivers
// chunks over a channel. A mid-stream failure is delivered as a final chunk
// with Error set; the channel is always closed when the stream ends.
func (c *Client) GenerateStreamChan(ctx context.Context, req GenerateRequest) <-chan StreamChunk {
	ch := make(chan StreamChunk, 32)

	go func() {
		defer close(ch)
		err := c.GenerateStream(ctx, req, func(chunk StreamChunk) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			select {
			case ch <- StreamChunk{Error: err}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}
