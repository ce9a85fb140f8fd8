// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hyperionx/hyperionx/internal/groq"
	"github.com/hyperionx/hyperionx/internal/keypool"
	"github.com/hyperionx/hyperionx/internal/search"
	"github.com/hyperionx/hyperionx/internal/util"
)

// Tuning constants for routing model calls.
const (
	// DefaultMaxTries bounds credential failover for one classification call.
	DefaultMaxTries = 3

	// classifierMaxTokens bounds the classifier's JSON reply.
	classifierMaxTokens = 200

	// classifierContextTurns is how many recent conversation turns the
	// classifier sees for resolving pronouns ("what about next year?").
	classifierContextTurns = 3
)

// ErrNoVerdict indicates every attempt to get a routing verdict failed.
var ErrNoVerdict = errors.New("no routing verdict from model")

// Decision is the outcome of routing one user turn.
type Decision struct {
	// ShouldSearch is true when the turn needs web grounding.
	ShouldSearch bool

	// Query is the standalone search query to run. Empty when
	// ShouldSearch is false.
	Query string

	// Forced is true when a keyword list made the decision; the
	// classifier was never consulted.
	Forced bool

	// Topic names the matching keyword list for forced decisions.
	Topic string
}

// verdict is the classifier's JSON reply shape.
type verdict struct {
	ShouldSearch bool   `json:"should_search"`
	Query        string `json:"query"`
}

// rewriteReply is the JSON shape for query rewriting and improvement calls.
type rewriteReply struct {
	Query string `json:"query"`
}

// Router decides search necessity and shapes search queries.
type Router struct {
	llm      *groq.Client
	pool     *keypool.Pool
	maxTries int
}

// New creates a router over the given model client and credential pool.
func New(llm *groq.Client, pool *keypool.Pool) *Router {
	return &Router{
		llm:      llm,
		pool:     pool,
		maxTries: DefaultMaxTries,
	}
}

// WithMaxTries bounds credential failover per model call.
func (r *Router) WithMaxTries(n int) *Router {
	if n > 0 {
		r.maxTries = n
	}
	return r
}

// Route decides whether the query needs search and with what search query.
//
// Keyword-forced turns skip the classifier entirely; the only model call
// they make is the query rewrite, and if that fails the raw user text is
// searched as-is. Classifier turns degrade to no search when the model is
// unreachable, because an ungrounded answer beats no answer.
func (r *Router) Route(ctx context.Context, query string, recent []groq.ChatMessage) Decision {
	if ForceSearch(query) {
		topic := ForcedTopic(query)
		log.Printf("router: forced search (topic=%s)", topic)
		// Forced topics live on official sites; the hint steers the
		// provider there from the first pass.
		return Decision{
			ShouldSearch: true,
			Query:        r.RewriteQuery(ctx, query, recent) + " (" + OfficialHint + ")",
			Forced:       true,
			Topic:        topic,
		}
	}

	var v verdict
	err := r.jsonCall(ctx, r.classifierMessages(query, recent), &v)
	if err != nil {
		log.Printf("router: classifier unavailable, answering without search: %v", err)
		return Decision{ShouldSearch: false}
	}

	if !v.ShouldSearch {
		return Decision{ShouldSearch: false}
	}
	searchQuery := strings.TrimSpace(v.Query)
	if searchQuery == "" {
		searchQuery = query
	}
	return Decision{ShouldSearch: true, Query: searchQuery}
}

// RewriteQuery turns a conversational message into a standalone web query.
// Falls back to the raw message on any failure.
func (r *Router) RewriteQuery(ctx context.Context, query string, recent []groq.ChatMessage) string {
	messages := []groq.ChatMessage{
		groq.NewSystemMessage(rewritePrompt),
	}
	messages = append(messages, contextTurns(recent)...)
	messages = append(messages, groq.NewUserMessage(query))

	var reply rewriteReply
	if err := r.jsonCall(ctx, messages, &reply); err != nil {
		log.Printf("router: rewrite failed, searching raw text: %v", err)
		return query
	}
	if q := strings.TrimSpace(reply.Query); q != "" {
		return q
	}
	return query
}

// ImproveQuery rewrites a query that produced weak results. Implements
// search.QueryImprover.
func (r *Router) ImproveQuery(ctx context.Context, query string, results []search.Result) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original query: %s\n", query)
	if len(results) == 0 {
		sb.WriteString("It returned no results.\n")
	} else {
		sb.WriteString("It returned only these thin results:\n")
		for _, res := range results {
			fmt.Fprintf(&sb, "- %s (%s)\n", res.Title, res.Host())
		}
	}

	messages := []groq.ChatMessage{
		groq.NewSystemMessage(improvePrompt),
		groq.NewUserMessage(sb.String()),
	}

	var reply rewriteReply
	if err := r.jsonCall(ctx, messages, &reply); err != nil {
		return "", err
	}
	improved := strings.TrimSpace(reply.Query)
	if improved == "" {
		return "", ErrNoVerdict
	}
	return improved, nil
}

// classifierMessages builds the classification prompt with recent context.
func (r *Router) classifierMessages(query string, recent []groq.ChatMessage) []groq.ChatMessage {
	messages := []groq.ChatMessage{
		groq.NewSystemMessage(classifierPrompt),
	}
	messages = append(messages, contextTurns(recent)...)
	messages = append(messages, groq.NewUserMessage(query))
	return messages
}

// contextTurns trims history to the last few turns for routing prompts.
func contextTurns(recent []groq.ChatMessage) []groq.ChatMessage {
	if len(recent) > classifierContextTurns*2 {
		recent = recent[len(recent)-classifierContextTurns*2:]
	}
	return recent
}

// jsonCall runs a blocking model call and parses a JSON object out of the
// reply, rotating credentials on failure. Attempts are bounded by both
// maxTries and the pool size: with fewer keys than tries there is no point
// re-asking a key that just failed.
func (r *Router) jsonCall(ctx context.Context, messages []groq.ChatMessage, out interface{}) error {
	tries := r.maxTries
	if n := r.pool.Len(); n < tries {
		tries = n
	}
	if tries == 0 {
		return keypool.ErrNoKeys
	}

	var lastErr error
	for attempt := 0; attempt < tries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		key, err := r.pool.Acquire()
		if err != nil {
			return err
		}

		resp, err := r.llm.Chat(ctx, key, groq.ChatRequest{
			Messages:    messages,
			Temperature: 0.1,
			MaxTokens:   classifierMaxTokens,
		})
		if err != nil {
			r.pool.Release(key, !groq.IsKeyFailure(err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			lastErr = err
			log.Printf("router: model call via key %s failed: %v", keypool.Fingerprint(key), err)
			continue
		}
		r.pool.Release(key, true)

		if err := util.ExtractJSON(resp.GetContent(), out); err != nil {
			// The model answered but not in JSON. A different key will
			// not fix a prompt-following failure.
			return fmt.Errorf("%w: %v", ErrNoVerdict, err)
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrNoVerdict, lastErr)
}

// ============================================================================
// PROMPTS
// ============================================================================

const classifierPrompt = `You are a routing module for a German-language assistant focused on politics and economics. Decide whether answering the user's latest message requires a live web search.

Search is required for current events, office holders, prices, rates, statistics, and anything that may have changed recently. Search is not required for definitions, history, math, or conversation about the dialog itself.

Respond with ONLY a JSON object, no prose:
{"should_search": true or false, "query": "standalone web search query, empty if no search"}

The query must be self-contained: resolve pronouns and references from the conversation.`

const rewritePrompt = `Rewrite the user's latest message as one standalone web search query. Resolve pronouns and references from the conversation. Keep the original language. Do not answer the question.

Respond with ONLY a JSON object, no prose:
{"query": "the search query"}`

const improvePrompt = `A web search returned too little material to answer from. Write one better search query: more specific terms, names spelled out, the current year added when it helps. Keep the original language.

Respond with ONLY a JSON object, no prose:
{"query": "the improved search query"}`
