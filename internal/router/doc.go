// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router decides whether a user turn needs web search grounding and
// shapes the query that gets searched.
//
// Routing happens in two stages. A keyword stage forces search for topics
// where a stale answer is worse than no answer: German and EU politics,
// macroeconomics and markets, and anything phrased around current values
// ("today", "latest", prices, rates). Everything else goes through a small
// model call that returns a JSON verdict plus a standalone search query.
//
// Model calls here are cheap classification prompts, so they run blocking
// with bounded failover across the credential pool rather than streaming.
// Every model failure degrades: forced turns fall back to the raw user text
// as the query, classifier turns fall back to answering without search.
package router
