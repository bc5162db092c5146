// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// message.go - The Message type, streaming accumulation, and stats.

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// An assistant message begins life streaming: content arrives as fragments
// and is republished into Content after every fragment so observers always
// see the full partial text. Finalization is one-way; a finalized message is
// never resurrected into the streaming state.
type Message struct {
	// Identity
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Role           Role      `json:"role"`
	Timestamp      time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// Token statistics
	TokenCount int `json:"token_count,omitempty"`

	// Performance metrics (for assistant messages)
	TTFT          time.Duration `json:"ttft_ns,omitempty"`           // Time to first token
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"` // Total generation time
	TokensPerSec  float64       `json:"tokens_per_sec,omitempty"`    // Generation speed

	// Model that produced the message (assistant messages)
	Model string `json:"model,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewStreamingMessage creates a new assistant message in the streaming state.
func NewStreamingMessage() *Message {
	return &Message{
		ID:          uuid.New().String(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// STREAMING LIFECYCLE
// =============================================================================

// AppendStreamContent appends a fragment and republishes the accumulated
// buffer as the message's current content. No-op once finalized.
func (m *Message) AppendStreamContent(fragment string) {
	if !m.IsStreaming {
		return
	}
	m.streamContent.WriteString(fragment)
	m.Content = m.streamContent.String()
}

// FinalizeStream marks the message non-streaming. The accumulated content is
// kept as-is; already-final messages are unchanged.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.IsStreaming = false
}

// SetStats attaches trailing generation metadata. Intended to be called at
// finalization time with whatever the terminal fragment carried.
func (m *Message) SetStats(tokens int, ttft, total time.Duration, tokensPerSec float64) {
	m.TokenCount = tokens
	m.TTFT = ttft
	m.TotalDuration = total
	m.TokensPerSec = tokensPerSec
}

// Preview returns the first maxRunes characters of the content for listings.
func (m *Message) Preview(maxRunes int) string {
	runes := []rune(strings.TrimSpace(m.Content))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}
