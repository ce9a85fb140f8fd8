// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question handler for hyperionx.
//
// Handles "hyperionx ask": run one turn, print the answer, exit. With
// --json the answer, sources, and grounding metadata are emitted as a
// single JSON object for scripting.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"

	"github.com/hyperionx/hyperionx/internal/chat"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for answers.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Plain text fallback.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, falling back to the
// raw content when rendering fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// askResult is the JSON shape for --json output.
type askResult struct {
	Answer   string      `json:"answer"`
	Grounded bool        `json:"grounded"`
	Topic    string      `json:"topic,omitempty"`
	Sources  []askSource `json:"sources,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type askSource struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HandleAsk runs a single question and prints the answer.
func HandleAsk(args Args) error {
	if args.Query == "" {
		return fmt.Errorf("no question given; usage: hyperionx ask \"question\"")
	}

	app := NewAppFromEnv(args)
	ctx := context.Background()

	turn := app.Engine.Ask(ctx, args.Query, nil)

	streamLive := !args.JSON && !IsStdoutTTY()
	var done chat.Event
	for ev := range turn.Events {
		switch ev.Kind {
		case chat.KindStatus:
			if !args.Quiet && !args.JSON {
				fmt.Fprintln(os.Stderr, statusStyle.Render(ev.Status))
			}
		case chat.KindFragment:
			if streamLive {
				fmt.Print(ev.Fragment)
			}
		case chat.KindDone:
			done = ev
		}
	}

	msg := done.Message

	if args.JSON {
		return printAskJSON(msg, done.Err)
	}

	if streamLive {
		fmt.Println()
	} else {
		fmt.Print(renderMarkdown(msg.Content))
	}

	if !args.Quiet && app.Config.UI.ShowSources && len(msg.Sources) > 0 {
		printSourceCards(msg)
		fmt.Println()
	}

	return done.Err
}

func printAskJSON(msg chat.Message, turnErr error) error {
	out := askResult{
		Answer:   msg.Content,
		Grounded: msg.Grounded,
		Topic:    msg.Topic,
	}
	for i, src := range msg.Sources {
		out.Sources = append(out.Sources, askSource{Index: i + 1, Title: src.Title, URL: src.URL})
	}
	if turnErr != nil {
		out.Error = turnErr.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return turnErr
}
