// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package groq implements the Groq chat completions client.
//
// Groq exposes an OpenAI-compatible API, so the request and response shapes
// here follow the /chat/completions contract: blocking calls for the router's
// small classification prompts and SSE streaming for answer generation.
//
// Unlike a single-tenant client, credentials are not stored on the Client.
// Every call takes the API key as an argument because the keypool hands out a
// different credential per request. A call makes exactly one attempt with the
// key it was given; failover to another credential is the caller's job, which
// keeps retry policy next to the rotation policy instead of buried here.
package groq
