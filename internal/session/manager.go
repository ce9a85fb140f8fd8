// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/hyperionx/hyperionx/internal/chat"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks one conversation: its transcript, identity, and activity.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	messages []chat.Message

	// onReset is called after the transcript is cleared.
	onReset func()
}

// NewManager creates a manager with a fresh session ID and empty transcript.
func NewManager() *Manager {
	now := time.Now()
	return &Manager{
		sessionID:    generateSessionID(),
		startTime:    now,
		lastActivity: now,
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// StartTime returns when the session started.
func (m *Manager) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

// Duration returns how long the session has been active.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}

// IdleTime returns how long since last activity.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity)
}

// RecordActivity updates the last activity timestamp. Called on user input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Append adds a message to the transcript and counts as activity.
func (m *Manager) Append(msg chat.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	m.lastActivity = time.Now()
}

// Messages returns a copy of the full transcript.
func (m *Manager) Messages() []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]chat.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Recent returns a copy of the last n messages.
func (m *Manager) Recent(n int) []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || len(m.messages) == 0 {
		return nil
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}
	out := make([]chat.Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out
}

// Len returns the transcript length.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Reset clears the transcript and issues a new session ID. The previous ID
// is never reused, so anchors from the old transcript cannot collide.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.messages = nil
	m.sessionID = generateSessionID()
	m.startTime = time.Now()
	m.lastActivity = m.startTime
	onReset := m.onReset
	m.mu.Unlock()

	// Callback outside the lock.
	if onReset != nil {
		onReset()
	}
}

// SetResetCallback sets the function called after a reset.
func (m *Manager) SetResetCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReset = fn
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status for display.
type Status struct {
	SessionID string
	StartTime time.Time
	Duration  time.Duration
	IdleTime  time.Duration
	Messages  int
	Grounded  int
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	grounded := 0
	for _, msg := range m.messages {
		if msg.Grounded {
			grounded++
		}
	}

	now := time.Now()
	return Status{
		SessionID: m.sessionID,
		StartTime: m.startTime,
		Duration:  now.Sub(m.startTime),
		IdleTime:  now.Sub(m.lastActivity),
		Messages:  len(m.messages),
		Grounded:  grounded,
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	return "sess_" + chat.NewMessageID()
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}
