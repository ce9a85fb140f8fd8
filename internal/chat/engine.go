// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hyperionx/hyperionx/internal/citations"
	"github.com/hyperionx/hyperionx/internal/groq"
	"github.com/hyperionx/hyperionx/internal/keypool"
	"github.com/hyperionx/hyperionx/internal/router"
	"github.com/hyperionx/hyperionx/internal/search"
)

// EventKind discriminates turn events.
type EventKind int

// Turn event kinds, in the order a turn emits them.
const (
	// KindStatus is a progress label for the UI ("searching the web").
	KindStatus EventKind = iota

	// KindSources reports the final grounding set, before any answer text.
	KindSources

	// KindFragment is a streamed piece of answer text.
	KindFragment

	// KindDone carries the final assistant message and closes the turn.
	KindDone
)

// Status labels emitted during a turn.
const (
	StatusRouting   = "Analysiere Anfrage …"
	StatusSearching = "Suche im Web …"
	StatusRefining  = "Verfeinere Suche …"
	StatusAnswering = "Formuliere Antwort …"
)

// Event is one step of a running turn.
type Event struct {
	Kind EventKind

	// Status is set for KindStatus.
	Status string

	// Fragment is set for KindFragment.
	Fragment string

	// Sources is set for KindSources.
	Sources []search.Result

	// Message is set for KindDone: the complete assistant message with
	// citations linkified and sources attached.
	Message Message

	// Err is set on KindDone when the turn degraded (partial answer,
	// model unavailable). The Message is still usable.
	Err error
}

// Turn is one in-flight question. Read Events until it closes; the last
// event is always KindDone.
type Turn struct {
	// UserMessage is the transcript entry for the question.
	UserMessage Message

	// Events delivers progress, sources, fragments, then done.
	Events <-chan Event
}

// Engine runs conversational turns: route, search, refine, answer, cite.
type Engine struct {
	llm     *groq.Client
	llmPool *keypool.Pool
	router  *router.Router
	refiner *search.Refiner

	searcher search.Searcher

	temperature float64
	maxTokens   int

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine wires the engine from its parts. The refiner may be nil to skip
// result refinement.
func NewEngine(llm *groq.Client, llmPool *keypool.Pool, rt *router.Router, searcher search.Searcher, refiner *search.Refiner) *Engine {
	return &Engine{
		llm:         llm,
		llmPool:     llmPool,
		router:      rt,
		refiner:     refiner,
		searcher:    searcher,
		temperature: AnswerTemperature,
		maxTokens:   AnswerMaxTokens,
		now:         time.Now,
	}
}

// WithAnswerParams overrides the generation parameters for answers.
func (e *Engine) WithAnswerParams(temperature float64, maxTokens int) *Engine {
	if maxTokens > 0 {
		e.temperature = temperature
		e.maxTokens = maxTokens
	}
	return e
}

// Ask starts a turn for the user's text. The returned Turn's event channel
// is closed after the KindDone event. Cancel the context to abort the turn;
// a canceled turn still delivers KindDone with the partial message to a
// consumer that keeps draining, and a consumer that abandons the channel
// after canceling never strands the turn goroutine.
func (e *Engine) Ask(ctx context.Context, text string, history []Message) *Turn {
	events := make(chan Event, 64)
	userMsg := NewUserMessage(text)

	go func() {
		defer close(events)
		e.run(ctx, text, history, events)
	}()

	return &Turn{UserMessage: userMsg, Events: events}
}

// emit delivers one event. Buffer space is used first so events reach a
// draining consumer even after cancellation; when the buffer is full the
// send races the context, so a consumer that walked away cannot block the
// turn forever. Returns false when the event was dropped.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	default:
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// run executes one turn, ending with KindDone unless the turn was abandoned.
func (e *Engine) run(ctx context.Context, text string, history []Message, events chan<- Event) {
	if e.llmPool.Len() == 0 {
		msg := NewAssistantMessage(NoCredentialsFragment)
		if !emit(ctx, events, Event{Kind: KindFragment, Fragment: NoCredentialsFragment}) {
			return
		}
		emit(ctx, events, Event{Kind: KindDone, Message: msg, Err: keypool.ErrNoKeys})
		return
	}

	if !emit(ctx, events, Event{Kind: KindStatus, Status: StatusRouting}) {
		return
	}
	decision := e.router.Route(ctx, text, toGroqMessages(history))

	var sources []search.Result
	if decision.ShouldSearch {
		sources = e.gatherSources(ctx, decision, events)
	}
	if !emit(ctx, events, Event{Kind: KindSources, Sources: sources}) {
		return
	}

	if !emit(ctx, events, Event{Kind: KindStatus, Status: StatusAnswering}) {
		return
	}
	content, streamErr := e.streamAnswer(ctx, text, history, sources, events)

	msg := NewAssistantMessage("")
	msg.Grounded = len(sources) > 0
	msg.Topic = decision.Topic
	msg.Query = decision.Query
	msg.Sources = sources
	msg.Content = citations.Linkify(content, msg.ID, len(sources))

	emit(ctx, events, Event{Kind: KindDone, Message: msg, Err: streamErr})
}

// gatherSources runs the search pass and refinement for a turn. Search
// failure is not fatal: the turn degrades to an ungrounded answer. A nil
// searcher disables grounding entirely.
func (e *Engine) gatherSources(ctx context.Context, decision router.Decision, events chan<- Event) []search.Result {
	if e.searcher == nil {
		return nil
	}
	emit(ctx, events, Event{Kind: KindStatus, Status: StatusSearching})

	depth := search.DepthBasic
	if decision.Forced {
		// Forced topics are the ones users come here for; spend the
		// deeper search on them up front.
		depth = search.DepthAdvanced
	}

	results, err := e.searcher.Search(ctx, search.Request{
		Query: decision.Query,
		Depth: depth,
	})
	if err != nil {
		log.Printf("chat: search failed, answering ungrounded: %v", err)
		return nil
	}

	if e.refiner != nil && e.refiner.NeedsRefinement(results) {
		emit(ctx, events, Event{Kind: KindStatus, Status: StatusRefining})
		results = e.refiner.Refine(ctx, decision.Query, results)
	}
	return results
}

// streamAnswer acquires one model credential, streams the completion, and
// returns the full answer text. A mid-stream failure appends ErrorFragment
// to whatever was already streamed; the fragment is also emitted so live
// consumers see it.
func (e *Engine) streamAnswer(ctx context.Context, text string, history []Message, sources []search.Result, events chan<- Event) (string, error) {
	messages := e.buildMessages(text, history, sources)

	key, err := e.llmPool.Acquire()
	if err != nil {
		emit(ctx, events, Event{Kind: KindFragment, Fragment: NoCredentialsFragment})
		return NoCredentialsFragment, err
	}

	chunks, errs := e.llm.ChatStreamChan(ctx, key, groq.ChatRequest{
		Messages:    messages,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})

	var sb strings.Builder
	for chunk := range chunks {
		delta := chunk.GetContent()
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		emit(ctx, events, Event{Kind: KindFragment, Fragment: delta})
	}
	err = <-errs

	e.llmPool.Release(key, err == nil || !groq.IsKeyFailure(err))

	if err != nil {
		log.Printf("chat: stream via key %s failed: %v", keypool.Fingerprint(key), err)
		emit(ctx, events, Event{Kind: KindFragment, Fragment: ErrorFragment})
		sb.WriteString(ErrorFragment)
	}
	return sb.String(), err
}

// buildMessages assembles the completion request: system prompt (with the
// sources block when grounded), the recent history window, and the question.
func (e *Engine) buildMessages(text string, history []Message, sources []search.Result) []groq.ChatMessage {
	system := SystemPrompt(len(sources) > 0, e.now())
	if len(sources) > 0 {
		system += "\n\n" + SourcesBlock(sources)
	}

	messages := []groq.ChatMessage{groq.NewSystemMessage(system)}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	messages = append(messages, toGroqMessages(history)...)
	messages = append(messages, groq.NewUserMessage(text))
	return messages
}

// toGroqMessages converts transcript messages to wire messages.
func toGroqMessages(history []Message) []groq.ChatMessage {
	out := make([]groq.ChatMessage, 0, len(history))
	for _, m := range history {
		out = append(out, groq.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
