// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for CLI output.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperionx/hyperionx/internal/ui/styles"
)

func init() {
	// Respects NO_COLOR, FORCE_COLOR, and TTY detection.
	lipgloss.SetColorProfile(ColorProfile())
}

var (
	// promptStyle renders the REPL prompt.
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// welcomeStyle renders the startup banner.
	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	// infoStyle renders secondary information lines.
	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// statusStyle renders in-turn progress labels.
	statusStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	// commandStyle renders slash-command acknowledgements.
	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// warningStyle renders warnings.
	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// errorStyle renders errors.
	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	// labelStyle renders left-aligned field labels in status output.
	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(18)

	// sourceCardStyle frames one web source under a grounded answer.
	sourceCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Overlay).
			Padding(0, 1)

	// sourceTitleStyle renders the [n] Title line of a source card.
	sourceTitleStyle = lipgloss.NewStyle().
				Foreground(styles.Cyan).
				Bold(true)

	// sourceURLStyle renders source URLs.
	sourceURLStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// renderSeparator renders a horizontal separator sized to the terminal.
func renderSeparator() string {
	width := TerminalWidth()
	if width > 80 {
		width = 80
	}
	return lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(strings.Repeat("─", width))
}
