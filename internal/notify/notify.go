// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// notify.go - Severity levels, notification records, and fan-out.

package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Auto-dismiss durations by severity. Errors linger longer to be read.
const (
	DefaultDuration = 4 * time.Second
	WarningDuration = 6 * time.Second
	ErrorDuration   = 8 * time.Second
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient, human-readable message.
type Notification struct {
	ID        string
	Level     Level
	Message   string
	CreatedAt time.Time
	// Duration is the suggested auto-dismiss interval.
	Duration time.Duration
}

// Expired reports whether the notification is past its dismiss time.
func (n Notification) Expired() bool {
	return time.Since(n.CreatedAt) >= n.Duration
}

// Handler receives published notifications.
type Handler func(Notification)

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier fans notifications out to subscribers.
type Notifier struct {
	mu       sync.Mutex
	handlers []Handler
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers a handler for all future notifications.
func (n *Notifier) Subscribe(h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, h)
}

// Publish delivers a notification with the given level and message.
func (n *Notifier) Publish(level Level, message string) Notification {
	duration := DefaultDuration
	switch level {
	case LevelWarning:
		duration = WarningDuration
	case LevelError:
		duration = ErrorDuration
	}

	notification := Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	}

	n.mu.Lock()
	handlers := make([]Handler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.Unlock()

	for _, h := range handlers {
		h(notification)
	}
	return notification
}

// Info publishes an informational notification.
func (n *Notifier) Info(message string) Notification {
	return n.Publish(LevelInfo, message)
}

// Success publishes a success notification.
func (n *Notifier) Success(message string) Notification {
	return n.Publish(LevelSuccess, message)
}

// Warning publishes a warning notification.
func (n *Notifier) Warning(message string) Notification {
	return n.Publish(LevelWarning, message)
}

// Error publishes an error notification.
func (n *Notifier) Error(message string) Notification {
	return n.Publish(LevelError, message)
}
