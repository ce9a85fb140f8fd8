// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citations turns the model's bracketed source markers into anchor
// links and picks snippet sentences worth highlighting on source cards.
//
// The model is instructed to cite grounded claims as [1], [2], and so on.
// Linkify rewrites those markers into [[n]](#src-<msgID>-<n>) links pointing
// at per-message source anchors. Code blocks pass through untouched, since
// [0] inside a code sample is an index expression, not a citation. Running
// Linkify over already-linkified text changes nothing.
package citations
