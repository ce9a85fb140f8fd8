// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - The Bubble Tea model for the hyperionx TUI.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperionx/hyperionx/internal/chat"
	"github.com/hyperionx/hyperionx/internal/config"
	"github.com/hyperionx/hyperionx/internal/keypool"
	"github.com/hyperionx/hyperionx/internal/session"
	"github.com/hyperionx/hyperionx/internal/ui/styles"
)

// inputHeight is the fixed height of the input area.
const inputHeight = 3

// Options wires the model to the assistant built elsewhere.
type Options struct {
	Engine  *chat.Engine
	Session *session.Manager
	Config  *config.Config

	// ModelName is the effective model after CLI overrides.
	ModelName string

	// LLMPool and SearchPool feed the header chips.
	LLMPool    *keypool.Pool
	SearchPool *keypool.Pool
}

// turnEventMsg carries one engine event into the Bubble Tea loop.
type turnEventMsg struct {
	event chat.Event
}

// turnClosedMsg signals the turn's event channel closed.
type turnClosedMsg struct{}

// Model is the root TUI model.
type Model struct {
	opts Options

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	// streaming turn state
	turnEvents <-chan chat.Event
	cancelTurn context.CancelFunc
	streaming  bool
	partial    strings.Builder
	streamBuf  streamBuffer
	status     string

	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	lastErr error
}

// New builds the TUI model.
func New(opts Options) *Model {
	input := textarea.New()
	input.Placeholder = "Frage stellen … (Enter sendet, Ctrl+C beendet)"
	input.Prompt = "┃ "
	input.CharLimit = 4000
	input.SetHeight(1)
	input.ShowLineNumbers = false
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Cyan)

	return &Model{
		opts:   opts,
		input:  input,
		spin:   spin,
		status: "",
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick)
}

// waitForEvent delivers the next turn event as a message. Re-issued after
// every event so the channel drains without blocking the loop.
func waitForEvent(ch <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return turnClosedMsg{}
		}
		return turnEventMsg{event: ev}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnEventMsg:
		cmds = append(cmds, m.handleTurnEvent(msg.event)...)
		return m, tea.Batch(cmds...)

	case turnClosedMsg:
		m.turnEvents = nil
		return m, nil

	case frameTickMsg:
		if flushed, ok := m.streamBuf.Flush(); ok {
			m.partial.WriteString(flushed)
			m.refreshViewport(true)
		}
		if m.streaming {
			return m, frameTick()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKey processes key presses.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.streaming && m.cancelTurn != nil {
			// First Ctrl+C aborts the running answer, not the program.
			m.cancelTurn()
			return m, nil
		}
		return m, tea.Quit

	case "ctrl+d":
		return m, tea.Quit

	case "ctrl+l":
		m.opts.Session.Reset()
		m.partial.Reset()
		m.streamBuf.Reset()
		m.refreshViewport(false)
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if m.streaming {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.startTurn(text)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// startTurn submits a question to the engine.
func (m *Model) startTurn(text string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel

	m.opts.Session.RecordActivity()
	history := m.opts.Session.Recent(chat.HistoryWindow)

	turn := m.opts.Engine.Ask(ctx, text, history)
	m.opts.Session.Append(turn.UserMessage)

	m.turnEvents = turn.Events
	m.streaming = true
	m.partial.Reset()
	m.streamBuf.Reset()
	m.status = ""
	m.lastErr = nil
	m.refreshViewport(true)

	return tea.Batch(waitForEvent(m.turnEvents), frameTick(), m.spin.Tick)
}

// handleTurnEvent folds one engine event into the model.
func (m *Model) handleTurnEvent(ev chat.Event) []tea.Cmd {
	var cmds []tea.Cmd

	switch ev.Kind {
	case chat.KindStatus:
		m.status = ev.Status

	case chat.KindSources:
		// Sources render with the final message; nothing to do mid-turn.

	case chat.KindFragment:
		m.streamBuf.Write(ev.Fragment)

	case chat.KindDone:
		// The final message supersedes the partial stream.
		m.streaming = false
		m.status = ""
		m.partial.Reset()
		m.streamBuf.Reset()
		m.lastErr = ev.Err
		if m.cancelTurn != nil {
			m.cancelTurn()
			m.cancelTurn = nil
		}
		m.opts.Session.Append(ev.Message)
		m.refreshViewport(true)
	}

	if m.turnEvents != nil {
		cmds = append(cmds, waitForEvent(m.turnEvents))
	}
	return cmds
}

// resize lays the components out for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	contentHeight := height - headerHeight - statusHeight - inputHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = contentHeight
	}
	m.input.SetWidth(width - 2)

	wrap := width - 6
	if wrap > 100 {
		wrap = 100
	}
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.refreshViewport(false)
}

// refreshViewport re-renders the transcript. followTail keeps the view
// pinned to the newest content while an answer streams.
func (m *Model) refreshViewport(followTail bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if followTail {
		m.viewport.GotoBottom()
	}
}
