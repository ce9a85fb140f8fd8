// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperionx/hyperionx/internal/search"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation transcript.
type Message struct {
	// ID is a short random identifier, used to build citation anchors.
	ID string

	Role    string
	Content string

	// Sources are the search results the answer was grounded on.
	// Empty for user messages and ungrounded answers.
	Sources []search.Result

	// Grounded is true when the answer used web search.
	Grounded bool

	// Topic names the forced-search keyword list that triggered
	// grounding, when one did.
	Topic string

	// Query is the web search query the answer was grounded on. Source
	// cards use it to highlight the most relevant snippet sentence.
	// Empty for user messages and ungrounded answers.
	Query string

	CreatedAt time.Time
}

// NewMessageID returns a fresh 10-character message identifier. Short enough
// to keep anchors readable, random enough to never collide within a session.
func NewMessageID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}

// NewUserMessage creates a user message with a fresh ID.
func NewUserMessage(content string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message with a fresh ID.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
