// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keypool manages a pool of interchangeable API credentials for one
// provider.
//
// Both the language-model provider and the search provider are rate-limited
// per account, so hyperionx spreads calls across up to ten numbered
// credentials per provider. The pool hands out the least-loaded credential,
// cools down credentials that just failed, and never blocks: when every
// credential is cooling down it degrades to the one whose cooldown expires
// soonest rather than making the user wait.
//
// Credentials are loaded once at process start and are never added or
// removed at runtime; only their in-flight counters and cooldown timestamps
// change. All mutation happens under a single mutex and the critical
// sections are O(number of credentials) bookkeeping only — network calls
// always happen outside the lock.
package keypool
