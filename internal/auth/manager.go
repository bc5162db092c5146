// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// manager.go - Session state, lifecycle events, and expiry tracking.

package auth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// SESSION EVENTS
// =============================================================================

// EventType identifies a session state change.
type EventType string

const (
	// EventSignedIn fires when a session is established
	EventSignedIn EventType = "signed-in"

	// EventSignedOut fires when the session ends
	EventSignedOut EventType = "signed-out"

	// EventTokenRefreshed fires when the session token is replaced in place
	EventTokenRefreshed EventType = "token-refreshed"
)

// Event carries a session state change to subscribers. The token itself is
// never included; subscribers that need it ask the manager.
type Event struct {
	Type EventType
	At   time.Time
}

// Listener receives session events.
type Listener func(Event)

// RefreshFunc exchanges the current token for a fresh one before expiry.
// It returns the new token and its expiry.
type RefreshFunc func(ctx context.Context) (token string, expiresAt time.Time, err error)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// DefaultWarningBefore is how close to expiry Check starts refreshing.
const DefaultWarningBefore = 2 * time.Minute

// Manager holds the current session and fans out lifecycle events.
type Manager struct {
	mu sync.Mutex

	token     string
	expiresAt time.Time

	warningBefore time.Duration
	onRefresh     RefreshFunc

	listeners []Listener

	// now is swappable for tests
	now func() time.Time
}

// NewManager creates a session manager with no active session.
func NewManager() *Manager {
	return &Manager{
		warningBefore: DefaultWarningBefore,
		now:           time.Now,
	}
}

// WithWarningBefore overrides how close to expiry refresh kicks in.
func (m *Manager) WithWarningBefore(d time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.warningBefore = d
	}
	return m
}

// SetRefreshFunc installs the token refresh callback.
func (m *Manager) SetRefreshFunc(fn RefreshFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRefresh = fn
}

// Subscribe registers a listener for session events.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// SignIn establishes a session with the given opaque token.
// A zero expiresAt means the token does not expire client-side.
func (m *Manager) SignIn(token string, expiresAt time.Time) {
	m.mu.Lock()
	m.token = token
	m.expiresAt = expiresAt
	at := m.now()
	m.mu.Unlock()

	m.publish(Event{Type: EventSignedIn, At: at})
}

// SignOut ends the session and notifies subscribers so cached user data
// gets dropped.
func (m *Manager) SignOut() {
	m.mu.Lock()
	hadSession := m.token != ""
	m.token = ""
	m.expiresAt = time.Time{}
	at := m.now()
	m.mu.Unlock()

	if hadSession {
		m.publish(Event{Type: EventSignedOut, At: at})
	}
}

// RefreshToken replaces the token in place without tearing the session down.
func (m *Manager) RefreshToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	m.token = token
	m.expiresAt = expiresAt
	at := m.now()
	m.mu.Unlock()

	m.publish(Event{Type: EventTokenRefreshed, At: at})
}

// publish delivers an event to all listeners outside the lock.
func (m *Manager) publish(ev Event) {
	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SignedIn reports whether a session is active and unexpired.
func (m *Manager) SignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "" && !m.expiredLocked()
}

// Token returns the current session token, empty when signed out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expiredLocked() {
		return ""
	}
	return m.token
}

// Fingerprint returns a short hash of the token safe for logs.
// SECURITY: Never log the token itself.
func (m *Manager) Fingerprint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "none"
	}
	hash := sha256.Sum256([]byte(m.token))
	return fmt.Sprintf("%x", hash[:4])
}

// RemainingTime returns time until token expiry, 0 when expired or absent.
func (m *Manager) RemainingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" || m.expiresAt.IsZero() {
		return 0
	}
	remaining := m.expiresAt.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the session token has passed its expiry.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredLocked()
}

func (m *Manager) expiredLocked() bool {
	if m.expiresAt.IsZero() {
		return false
	}
	return !m.now().Before(m.expiresAt)
}

// =============================================================================
// EXPIRY HANDLING
// =============================================================================

// Check evaluates the session and reacts: a token nearing expiry is
// refreshed via the installed callback, an expired one signs the session
// out. Returns true while the session remains valid. Callers run this on a
// periodic tick.
func (m *Manager) Check(ctx context.Context) bool {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return false
	}
	expired := m.expiredLocked()
	nearExpiry := false
	if !expired && !m.expiresAt.IsZero() {
		nearExpiry = m.expiresAt.Sub(m.now()) <= m.warningBefore
	}
	onRefresh := m.onRefresh
	m.mu.Unlock()

	if expired {
		m.SignOut()
		return false
	}

	if nearExpiry && onRefresh != nil {
		token, expiresAt, err := onRefresh(ctx)
		if err == nil && token != "" {
			m.RefreshToken(token, expiresAt)
		}
	}

	return true
}
