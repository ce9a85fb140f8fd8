// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the full-screen hyperionx interface on Bubble Tea.
//
// The model owns the transcript viewport, the input line, and the in-turn
// status display. Turn events from the chat engine arrive as messages via a
// wait-for-event command, so all state changes happen on the Bubble Tea
// loop; streamed answer fragments are batched through a small buffer and
// flushed on a frame tick to keep rendering smooth during fast streams.
package ui
