// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL for hyperionx.
//
// Handles "hyperionx chat": a line-based conversation loop with input
// history, streamed answers, and source cards under grounded replies.
//
// Interactive commands:
//   /help, /h     Show available commands
//   /clear, /c    Clear conversation history
//   /status, /s   Show session statistics
//   /sources      Re-print the sources of the last answer
//   /quit, /q     Exit
//   Ctrl+C        Cancel the running answer
//   Ctrl+D        Exit
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/hyperionx/hyperionx/internal/chat"
	"github.com/hyperionx/hyperionx/internal/citations"
	"github.com/hyperionx/hyperionx/internal/config"
	"github.com/hyperionx/hyperionx/internal/session"
	"github.com/hyperionx/hyperionx/internal/util"
)

// sourceSnippetWidth caps the display width of the snippet on a source card.
const sourceSnippetWidth = 520

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and input history for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a liner-backed input reader with persisted history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close persists history and releases the terminal.
func (c *ChatCLI) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive REPL.
func HandleChat(args Args) error {
	app := NewAppFromEnv(args)

	if !app.Creds.HasModelKeys() {
		fmt.Fprintln(os.Stderr, warningStyle.Render(
			"No model API keys configured. Set GROQ_API_KEY_1 in the environment or a .env file."))
	}
	if !app.Creds.HasSearchKeys() {
		fmt.Fprintln(os.Stderr, warningStyle.Render(
			"No search API keys configured; answers will not be web-grounded."))
	}

	if !args.Quiet {
		printWelcome(app)
	}

	input := NewChatCLI()
	defer input.Close()

	// One cancel func shared with the signal handler: the first Ctrl+C
	// aborts the running turn, not the process.
	var cancelTurn context.CancelFunc
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if cancelTurn != nil {
				cancelTurn()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Abgebrochen]"))
			}
		}
	}()

	var lastAnswer chat.Message

	for {
		line, err := input.ReadInput(promptStyle.Render("hyperionx> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D both exit gracefully.
			fmt.Println()
			printExitSummary(app.Session)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing := handleSlashCommand(line, app.Session, lastAnswer)
			if !keepGoing {
				printExitSummary(app.Session)
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			printExitSummary(app.Session)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancelTurn = cancel
		msg, err := runTurn(ctx, app, line, args.Quiet)
		cancelTurn = nil
		cancel()

		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Fehler]"), err)
		}
		lastAnswer = msg
	}
}

// runTurn executes one question through the engine and renders its events.
// The assistant message is recorded in the session even when the turn
// degraded, so the conversation stays coherent.
func runTurn(ctx context.Context, app *App, text string, quiet bool) (chat.Message, error) {
	app.Session.RecordActivity()
	history := app.Session.Recent(chat.HistoryWindow)

	turn := app.Engine.Ask(ctx, text, history)
	app.Session.Append(turn.UserMessage)

	useMarkdown := IsStdoutTTY()
	var done chat.Event

	fmt.Println()
	for ev := range turn.Events {
		switch ev.Kind {
		case chat.KindStatus:
			if !quiet {
				fmt.Fprintln(os.Stderr, statusStyle.Render(ev.Status))
			}
		case chat.KindFragment:
			// The raw text streams live; on a TTY the finished answer is
			// re-rendered as markdown below.
			fmt.Print(ev.Fragment)
		case chat.KindDone:
			done = ev
		}
	}
	fmt.Println()

	msg := done.Message
	app.Session.Append(msg)

	if useMarkdown && msg.Content != "" {
		// Replace the raw stream with the rendered version.
		fmt.Println()
		fmt.Print(renderMarkdown(msg.Content))
	}

	if !quiet && app.Config.UI.ShowSources && len(msg.Sources) > 0 {
		printSourceCards(msg)
	}
	fmt.Println()

	return msg, done.Err
}

// printSourceCards renders each grounding source as a bordered card with the
// most relevant sentence highlighted. The highlight query travels on the
// message, so a /sources replay highlights the same sentence as the live turn.
func printSourceCards(msg chat.Message) {
	fmt.Println()
	fmt.Println(infoStyle.Render("Quellen:"))

	cited := citations.CitedIndexes(msg.Content, len(msg.Sources))
	citedSet := make(map[int]bool, len(cited))
	for _, n := range cited {
		citedSet[n] = true
	}

	width := TerminalWidth()
	if width > 100 {
		width = 100
	}

	for i, src := range msg.Sources {
		n := i + 1
		title := fmt.Sprintf("[%d] %s", n, util.CollapseWhitespace(src.Title))
		if citedSet[n] {
			title += " ✓"
		}
		title = util.TruncateWidth(title, width-8)

		snippet := util.TruncateWidth(util.CollapseWhitespace(src.Content), sourceSnippetWidth)
		snippet = citations.Highlight(snippet, msg.Query)

		card := sourceTitleStyle.Render(title) + "\n" +
			sourceURLStyle.Render(src.URL) + "\n" +
			snippet
		fmt.Println(sourceCardStyle.Width(width - 4).Render(card))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes one slash command. Returns false to exit.
func handleSlashCommand(cmd string, sess *session.Manager, lastAnswer chat.Message) bool {
	switch strings.ToLower(strings.Fields(cmd)[0]) {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true

	case "/clear", "/c":
		sess.Reset()
		fmt.Println(commandStyle.Render("[Verlauf gelöscht]"))
		return true

	case "/status", "/s":
		printSessionStatus(sess)
		return true

	case "/sources":
		if len(lastAnswer.Sources) == 0 {
			fmt.Println(infoStyle.Render("Die letzte Antwort hat keine Quellen."))
			return true
		}
		printSourceCards(lastAnswer)
		return true

	case "/quit", "/q", "/exit":
		return false

	default:
		fmt.Fprintf(os.Stderr, "%s unbekannter Befehl %q (/help zeigt alle)\n",
			warningStyle.Render("[?]"), cmd)
		return true
	}
}

func printChatHelp() {
	fmt.Println(infoStyle.Render(`Befehle:
  /help, /h     Diese Hilfe
  /clear, /c    Verlauf löschen
  /status, /s   Sitzungsstatistik
  /sources      Quellen der letzten Antwort
  /quit, /q     Beenden`))
}

func printSessionStatus(sess *session.Manager) {
	st := sess.GetStatus()
	fmt.Println(welcomeStyle.Render("Sitzung"))
	fmt.Printf("%s %s\n", labelStyle.Render("ID"), st.SessionID)
	fmt.Printf("%s %s\n", labelStyle.Render("Dauer"), session.FormatDuration(st.Duration))
	fmt.Printf("%s %d\n", labelStyle.Render("Nachrichten"), st.Messages)
	fmt.Printf("%s %d\n", labelStyle.Render("Mit Quellen"), st.Grounded)
}

// =============================================================================
// BANNER AND SUMMARY
// =============================================================================

func printWelcome(app *App) {
	fmt.Println(welcomeStyle.Render("hyperionx " + Version))
	fmt.Println(infoStyle.Render(fmt.Sprintf("Modell %s · %d Modell-Keys · %d Such-Keys",
		app.Model, app.LLMPool.Len(), app.SearchPool.Len())))
	fmt.Println(infoStyle.Render("/help zeigt Befehle, Ctrl+D beendet."))
	fmt.Println()
}

func printExitSummary(sess *session.Manager) {
	st := sess.GetStatus()
	if st.Messages == 0 {
		return
	}
	fmt.Println(renderSeparator())
	fmt.Printf("%s %d Nachrichten in %s, %d mit Quellen\n",
		infoStyle.Render("Sitzung:"),
		st.Messages, session.FormatDuration(st.Duration), st.Grounded)
}
