// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON object could be recovered from the text.
var ErrNoJSON = errors.New("no JSON object found in text")

var (
	// jsonSpanRe matches the outermost {...} span, across newlines.
	jsonSpanRe = regexp.MustCompile(`(?s)\{.*\}`)

	// langTagRe strips a leading language tag left over from a code fence,
	// e.g. "json\n{...}".
	langTagRe = regexp.MustCompile(`(?i)^\s*json\s*`)
)

// ExtractJSON recovers a JSON object from free-form model output and
// unmarshals it into v.
//
// The fallback chain is deliberate and ordered:
//  1. If the text contains code fences, keep the longest fenced part that
//     contains braces and drop a leading "json" language tag.
//  2. Narrow to the outermost {...} span.
//  3. Unmarshal. Any failure returns an error; the caller supplies the
//     deterministic fallback value.
//
// This mirrors how models actually misbehave: wrapping JSON in ```json
// fences, prefixing "Here is the JSON you asked for:", or trailing prose.
func ExtractJSON(text string, v interface{}) error {
	t := strings.TrimSpace(text)
	if t == "" {
		return ErrNoJSON
	}

	if strings.Contains(t, "```") {
		parts := strings.Split(t, "```")
		best := ""
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if strings.Contains(p, "{") && strings.Contains(p, "}") && len(p) > len(best) {
				best = p
			}
		}
		if best != "" {
			t = best
		}
		t = langTagRe.ReplaceAllString(t, "")
	}

	if m := jsonSpanRe.FindString(t); m != "" {
		t = m
	}

	if err := json.Unmarshal([]byte(t), v); err != nil {
		return ErrNoJSON
	}
	return nil
}
