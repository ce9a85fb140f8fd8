// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperionx/hyperionx/internal/search"
	"github.com/hyperionx/hyperionx/internal/util"
)

// Prompt construction constants.
const (
	// HistoryWindow is how many transcript messages the answer model sees.
	// Three user/assistant exchanges keep follow-ups coherent without
	// dragging the whole session into every request.
	HistoryWindow = 6

	// MaxSnippetChars caps each source snippet in the prompt. Tavily
	// snippets can run long and six of them have to fit alongside the
	// question and history.
	MaxSnippetChars = 650

	// AnswerTemperature keeps answers factual but not robotic.
	AnswerTemperature = 0.4

	// AnswerMaxTokens bounds one streamed answer.
	AnswerMaxTokens = 1024
)

// ErrorFragment is appended to a partially streamed answer when the model
// fails mid-stream, so the user knows the text above it is incomplete.
const ErrorFragment = "\n\n⚠️ Model error / rate limit. Please try again in a moment."

// NoCredentialsFragment replaces the answer when no model credentials are
// configured at all.
const NoCredentialsFragment = "⚠️ No model API keys are configured. Set GROQ_API_KEY_1 and restart."

// timeFormat stamps prompts so the model knows what "today" means.
const timeFormat = "Monday, 2 January 2006, 15:04 MST"

// SystemPrompt builds the system message for an answer. Grounded answers
// must stick to the sources block and cite; ungrounded answers must flag
// possibly stale knowledge.
func SystemPrompt(grounded bool, now time.Time) string {
	stamp := now.Format(timeFormat)
	if grounded {
		return fmt.Sprintf(groundedPrompt, stamp)
	}
	return fmt.Sprintf(ungroundedPrompt, stamp)
}

const groundedPrompt = `You are a precise German-language assistant for politics and economics. Current date and time: %s.

Web search results are provided below as numbered sources. Rules:
- Answer based on the sources. Cite every grounded claim with its source number in brackets, like [1] or [2].
- When the sources do not cover the question, say so plainly instead of guessing.
- Prefer numbers, dates, and named institutions over vague statements.
- Answer in the language of the question. Be concise.`

const ungroundedPrompt = `You are a precise German-language assistant for politics and economics. Current date and time: %s.

No web search was performed for this question. Answer from your knowledge, and when the answer could have changed recently, say that it may be outdated. Answer in the language of the question. Be concise.`

// SourcesBlock renders search results as the numbered block the grounded
// prompt refers to. Snippets are whitespace-collapsed and capped.
func SourcesBlock(results []search.Result) string {
	var sb strings.Builder
	sb.WriteString("SOURCES:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\n[%d] %s\n%s\n%s\n",
			i+1,
			util.CollapseWhitespace(r.Title),
			r.URL,
			util.TruncateRunes(util.CollapseWhitespace(r.Content), MaxSnippetChars))
	}
	return sb.String()
}
