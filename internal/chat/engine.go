// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// engine.go - Stream consumption, message assembly, and finalization.

package chat

import (
	"context"
	"time"

	"github.com/jeranaias/chatcore/internal/api"
	"github.com/jeranaias/chatcore/internal/model"
	"github.com/jeranaias/chatcore/internal/notify"
)

// Streamer is the backend capability the engine needs.
type Streamer interface {
	GenerateStreamChan(ctx context.Context, req api.GenerateRequest) <-chan api.StreamChunk
}

// PublishFunc receives the message after every visible update.
type PublishFunc func(*model.Message)

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs streaming generations with per-conversation preemption.
type Engine struct {
	client   Streamer
	notifier *notify.Notifier
	flights  *flightTable
}

// NewEngine creates an engine. The notifier receives a user-facing
// notification when a stream drops mid-flight; it may be nil.
func NewEngine(client Streamer, notifier *notify.Notifier) *Engine {
	return &Engine{
		client:   client,
		notifier: notifier,
		flights:  newFlightTable(),
	}
}

// Stream runs one streaming generation for conversationID, blocking until
// the stream finishes, fails, or is cancelled. publish is invoked after
// every fragment with the message holding the full accumulated content.
//
// The returned message is nil if the stream produced no content. On
// cancellation the message is returned finalized with its partial content
// alongside the context error; on mid-stream failure alongside the stream
// error.
func (e *Engine) Stream(ctx context.Context, conversationID string, req api.GenerateRequest, publish PublishFunc) (*model.Message, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := e.flights.replace(conversationID, cancel)
	defer e.flights.release(conversationID, f)

	if publish == nil {
		publish = func(*model.Message) {}
	}

	var msg *model.Message
	start := time.Now()
	var firstToken time.Time

	ch := e.client.GenerateStreamChan(streamCtx, req)
	for chunk := range ch {
		// A fragment may already be in flight when the stream is
		// cancelled; drop it rather than growing the partial reply.
		if streamCtx.Err() != nil {
			break
		}
		if chunk.Error != nil {
			// Mid-stream drop: behave like a cancellation, keep the
			// partial content visible, tell the user.
			e.finalize(msg, chunk, start, firstToken, publish)
			if e.notifier != nil {
				e.notifier.Error("Response interrupted. Partial reply kept.")
			}
			return msg, chunk.Error
		}

		if chunk.Content != "" {
			if msg == nil {
				msg = model.NewStreamingMessage()
				msg.ConversationID = conversationID
				msg.Model = chunk.Model
				firstToken = time.Now()
			}
			msg.AppendStreamContent(chunk.Content)
		}
		if chunk.Done {
			e.finalize(msg, chunk, start, firstToken, publish)
			return msg, nil
		}
		if msg != nil {
			publish(msg)
		}
	}

	// Channel closed without a terminal chunk: the stream was cancelled,
	// either by the caller or by a superseding request.
	e.finalize(msg, api.StreamChunk{}, start, firstToken, publish)
	if err := streamCtx.Err(); err != nil {
		return msg, err
	}
	return msg, nil
}

// finalize marks the message non-streaming, attaches trailing metadata from
// the terminal chunk, and republishes. Safe on nil messages.
func (e *Engine) finalize(msg *model.Message, last api.StreamChunk, start, firstToken time.Time, publish PublishFunc) {
	if msg == nil {
		return
	}

	total := time.Since(start)
	if last.TotalDurationNS > 0 {
		total = time.Duration(last.TotalDurationNS)
	}
	ttft := time.Duration(0)
	if !firstToken.IsZero() {
		ttft = firstToken.Sub(start)
	}
	tokensPerSec := 0.0
	if last.CompletionTokens > 0 && total > 0 {
		tokensPerSec = float64(last.CompletionTokens) / total.Seconds()
	}

	msg.SetStats(last.CompletionTokens, ttft, total, tokensPerSec)
	msg.FinalizeStream()
	publish(msg)
}

// Cancel stops the outstanding stream for a conversation, if any.
func (e *Engine) Cancel(conversationID string) {
	e.flights.cancelKey(conversationID)
}

// CancelAll stops every outstanding stream.
func (e *Engine) CancelAll() {
	e.flights.cancelAll()
}

// Streaming reports whether a stream is outstanding for a conversation.
func (e *Engine) Streaming(conversationID string) bool {
	return e.flights.active(conversationID)
}
