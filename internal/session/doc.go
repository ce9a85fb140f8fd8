// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the in-memory conversation transcript and session
// activity state.
//
// A session lives exactly as long as the process; nothing is persisted. The
// manager is safe for concurrent use because the streaming engine appends
// the assistant message from a goroutine while the UI reads the transcript.
package session
