// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates one conversational turn end to end: route the
// question, gather and refine web sources when grounding is needed, stream
// the model's answer, and linkify its citations.
//
// The Engine communicates through a per-turn event channel so both the
// terminal REPL and the TUI can render progress the same way: status labels
// while the turn works, the resolved source set, answer fragments as they
// stream, and a final complete message. Every failure mode degrades instead
// of erroring the turn: no search results means an ungrounded answer, a
// mid-stream model failure means a partial answer with an error notice.
package chat
