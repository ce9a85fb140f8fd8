// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// stream.go - Fragment batching for smooth streaming renders.
//
// SSE deltas arrive far faster than a terminal can usefully repaint. The
// buffer accumulates fragments and releases them on a frame tick, capping
// the repaint rate without adding visible latency.
package ui

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameInterval caps transcript repaints at roughly 30fps while streaming.
const frameInterval = 33 * time.Millisecond

// streamBuffer accumulates answer fragments between frame ticks.
// Writes come from the Bubble Tea loop today, but the mutex keeps the type
// safe if fragments are ever delivered from the turn goroutine directly.
type streamBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (sb *streamBuffer) Write(fragment string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.WriteString(fragment)
}

// Flush returns and clears the accumulated fragments.
func (sb *streamBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.buf.Len() == 0 {
		return "", false
	}
	content := sb.buf.String()
	sb.buf.Reset()
	return content, true
}

func (sb *streamBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.Reset()
}

// frameTickMsg drives streaming repaints.
type frameTickMsg time.Time

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}
