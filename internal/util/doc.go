// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the hyperionx application.
//
// It contains two groups of functions:
//
//   - Loose JSON extraction: recovering a JSON object from free-form model
//     output that may be wrapped in code fences or surrounded by prose.
//     Language models asked to "return ONLY JSON" frequently do not, so
//     every structured call in the router goes through ExtractJSON.
//
//   - String handling: rune- and width-aware truncation that never splits a
//     multi-byte UTF-8 character, plus whitespace normalization for search
//     snippets.
package util
