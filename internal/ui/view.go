// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Layout and transcript rendering for the TUI.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperionx/hyperionx/internal/chat"
	"github.com/hyperionx/hyperionx/internal/citations"
	"github.com/hyperionx/hyperionx/internal/ui/styles"
	"github.com/hyperionx/hyperionx/internal/util"
)

const (
	headerHeight = 2
	statusHeight = 1

	// cardSnippetWidth caps the display width of the snippet on a source card.
	cardSnippetWidth = 320
)

var (
	headerTitleStyle = lipgloss.NewStyle().
				Foreground(styles.Purple).
				Bold(true)

	headerChipStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	groundedChipStyle = lipgloss.NewStyle().
				Foreground(styles.Emerald)

	statusLineStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	errLineStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	userBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.UserBubbleBorder).
			Foreground(styles.UserBubbleFg).
			Padding(0, 1)

	assistantBubbleStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(styles.AssistantBubbleBorder).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(styles.Overlay).
			Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	cardURLStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	cardHighlightStyle = lipgloss.NewStyle().
				Foreground(styles.Amber).
				Bold(true)
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Initialisiere …"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

// renderHeader draws the title row and the credential chips.
func (m *Model) renderHeader() string {
	title := headerTitleStyle.Render("hyperionx")

	chips := []string{
		headerChipStyle.Render(m.opts.ModelName),
		headerChipStyle.Render(fmt.Sprintf("%d Modell-Keys", m.opts.LLMPool.Len())),
	}
	if m.opts.SearchPool.Len() > 0 {
		chips = append(chips, groundedChipStyle.Render(
			fmt.Sprintf("Websuche (%d Keys)", m.opts.SearchPool.Len())))
	} else {
		chips = append(chips, errLineStyle.Render("keine Websuche"))
	}
	chips = append(chips, headerChipStyle.Render(time.Now().Format("15:04")))

	line := title + "  " + strings.Join(chips, headerChipStyle.Render(" · "))
	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(strings.Repeat("─", max(m.width, 1)))
	return line + "\n" + separator
}

// renderStatusLine draws the spinner and current turn status, or the last
// error once the turn finished.
func (m *Model) renderStatusLine() string {
	if m.streaming {
		label := m.status
		if label == "" {
			label = chat.StatusAnswering
		}
		return m.spin.View() + " " + statusLineStyle.Render(label)
	}
	if m.lastErr != nil {
		return errLineStyle.Render("⚠ " + m.lastErr.Error())
	}
	return statusLineStyle.Render("Enter sendet · Ctrl+L löscht · Ctrl+C beendet")
}

// renderTranscript renders all session messages plus the streaming partial.
func (m *Model) renderTranscript() string {
	var parts []string
	for _, msg := range m.opts.Session.Messages() {
		parts = append(parts, m.renderMessage(msg))
	}
	if m.streaming {
		partial := m.partial.String()
		if partial == "" {
			partial = m.spin.View()
		}
		parts = append(parts, assistantBubbleStyle.Width(m.bubbleWidth()).Render(partial))
	}
	return strings.Join(parts, "\n\n")
}

// renderMessage renders one transcript entry as a bubble, with source cards
// under grounded assistant answers.
func (m *Model) renderMessage(msg chat.Message) string {
	width := m.bubbleWidth()

	if msg.Role == chat.RoleUser {
		return userBubbleStyle.Width(width).Render(msg.Content)
	}

	content := msg.Content
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}
	out := assistantBubbleStyle.Width(width).Render(content)

	if len(msg.Sources) > 0 {
		out += "\n" + m.renderSourceCards(msg)
	}
	return out
}

// renderSourceCards renders the numbered grounding sources of a message,
// with the snippet sentence closest to the search query emphasized.
func (m *Model) renderSourceCards(msg chat.Message) string {
	cited := citations.CitedIndexes(msg.Content, len(msg.Sources))
	citedSet := make(map[int]bool, len(cited))
	for _, n := range cited {
		citedSet[n] = true
	}

	width := m.bubbleWidth()
	var cards []string
	for i, src := range msg.Sources {
		n := i + 1
		title := fmt.Sprintf("[%d] %s", n, util.CollapseWhitespace(src.Title))
		if citedSet[n] {
			title += " ✓"
		}
		title = util.TruncateWidth(title, width-4)

		snippet := util.TruncateWidth(util.CollapseWhitespace(src.Content), cardSnippetWidth)
		if best := citations.BestSentence(snippet, msg.Query); best != "" {
			snippet = strings.Replace(snippet, best, cardHighlightStyle.Render(best), 1)
		}

		card := cardTitleStyle.Render(title) + "\n" +
			cardURLStyle.Render(src.URL) + "\n" +
			snippet
		cards = append(cards, cardStyle.Width(width).Render(card))
	}
	return strings.Join(cards, "\n")
}

func (m *Model) bubbleWidth() int {
	width := m.width - 4
	if width > 100 {
		width = 100
	}
	if width < 20 {
		width = 20
	}
	return width
}
