// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search implements web search grounding via the Tavily API.
//
// The low-level Client speaks Tavily's HTTP contract with a single key per
// call. The Adapter layers on what a conversational turn actually needs:
// credential failover across the keypool, a short-lived response cache so a
// repeated question inside a session does not burn quota, host exclusion for
// low-signal social domains, and URL dedup.
//
// The Refiner judges whether a first pass of results can ground an answer
// and, when it cannot, runs a second pass with an improved query or an
// official-sources hint before the completion ever sees the results.
package search
