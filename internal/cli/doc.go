// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the hyperionx command line: argument parsing, the
// plain-terminal chat REPL, the one-shot ask command, and status output.
//
// The default invocation starts the full-screen TUI (wired from main); the
// handlers here cover everything that works without an alternate screen, so
// hyperionx stays usable over ssh, in scripts, and with piped output.
package cli
