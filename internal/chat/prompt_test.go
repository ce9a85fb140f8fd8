// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/hyperionx/hyperionx/internal/search"
)

// TestSystemPrompt verifies the two prompt variants and the timestamp.
func TestSystemPrompt(t *testing.T) {
	now := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

	grounded := SystemPrompt(true, now)
	if !strings.Contains(grounded, "numbered sources") {
		t.Error("grounded prompt missing sources instructions")
	}
	if !strings.Contains(grounded, "28 August 2026") {
		t.Errorf("grounded prompt missing timestamp: %q", grounded)
	}

	ungrounded := SystemPrompt(false, now)
	if !strings.Contains(ungrounded, "No web search") {
		t.Error("ungrounded prompt missing staleness instructions")
	}
	if strings.Contains(ungrounded, "numbered sources") {
		t.Error("ungrounded prompt must not mention sources")
	}
}

// TestSourcesBlock verifies numbering, snippet capping, and whitespace
// normalization.
func TestSourcesBlock(t *testing.T) {
	longSnippet := strings.Repeat("wort ", 300) // far over the cap
	results := []search.Result{
		{Title: "Destatis:\nInflationsrate", URL: "https://destatis.de/a", Content: "Kurzer  Text."},
		{Title: "EZB", URL: "https://ecb.europa.eu/b", Content: longSnippet},
	}

	block := SourcesBlock(results)

	if !strings.Contains(block, "[1] Destatis: Inflationsrate") {
		t.Errorf("first source malformed:\n%s", block)
	}
	if !strings.Contains(block, "[2] EZB") {
		t.Errorf("second source malformed:\n%s", block)
	}
	if !strings.Contains(block, "https://destatis.de/a") {
		t.Error("source URL missing")
	}
	for _, line := range strings.Split(block, "\n") {
		if len([]rune(line)) > MaxSnippetChars {
			t.Errorf("snippet line exceeds cap: %d runes", len([]rune(line)))
		}
	}
}
