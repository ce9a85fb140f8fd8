// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"testing"
)

// routeDecision mirrors the router's classifier payload for parsing tests.
type routeDecision struct {
	ShouldSearch bool   `json:"should_search"`
	Query        string `json:"query"`
}

// TestExtractJSON tests the loose JSON recovery fallback chain.
func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSearch bool
		wantQuery  string
		wantErr    bool
	}{
		{
			name:       "bare_json",
			input:      `{"should_search": true, "query": "chancellor Germany 2025"}`,
			wantSearch: true,
			wantQuery:  "chancellor Germany 2025",
		},
		{
			name:       "code_fence_with_language_tag",
			input:      "```json\n{\"should_search\": true, \"query\": \"chancellor Germany 2025\"}\n```",
			wantSearch: true,
			wantQuery:  "chancellor Germany 2025",
		},
		{
			name:       "code_fence_no_language_tag",
			input:      "```\n{\"should_search\": false, \"query\": \"\"}\n```",
			wantSearch: false,
			wantQuery:  "",
		},
		{
			name:       "leading_and_trailing_prose",
			input:      "Sure! Here is the JSON you asked for:\n{\"should_search\": true, \"query\": \"ecb rate decision\"}\nLet me know if you need anything else.",
			wantSearch: true,
			wantQuery:  "ecb rate decision",
		},
		{
			name:       "fence_plus_prose",
			input:      "The decision follows.\n```json\n{\"should_search\": true, \"query\": \"dax today\"}\n```\nDone.",
			wantSearch: true,
			wantQuery:  "dax today",
		},
		{
			name:    "no_json_at_all",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "empty_input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "malformed_json",
			input:   `{"should_search": true, "query": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got routeDecision
			err := ExtractJSON(tt.input, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractJSON(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON(%q) unexpected error: %v", tt.input, err)
			}
			if got.ShouldSearch != tt.wantSearch {
				t.Errorf("should_search = %v, want %v", got.ShouldSearch, tt.wantSearch)
			}
			if got.Query != tt.wantQuery {
				t.Errorf("query = %q, want %q", got.Query, tt.wantQuery)
			}
		})
	}
}

// TestExtractJSONNestedBraces verifies the outer-span regex keeps nested objects intact.
func TestExtractJSONNestedBraces(t *testing.T) {
	var got map[string]interface{}
	input := `prefix {"outer": {"inner": 1}, "query": "x"} suffix`
	if err := ExtractJSON(input, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["outer"]; !ok {
		t.Errorf("nested object lost: %v", got)
	}
}

// TestCollapseWhitespace tests whitespace normalization.
func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a  b", "a b"},
		{"a\nb\tc", "a b c"},
		{"  padded  ", "padded"},
		{"", ""},
		{"one", "one"},
	}
	for _, tt := range tests {
		if got := CollapseWhitespace(tt.input); got != tt.want {
			t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestTruncateRunes tests rune-safe truncation.
func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.input, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

// TestTruncateWidth tests display-width truncation. CJK characters occupy
// two terminal columns, so rune counting would overshoot the cap.
func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"日本語", 10, "日本語"},
		{"日本語テキスト", 8, "日本..."},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateWidth(tt.input, tt.max); got != tt.want {
			t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

// TestStringWidth tests terminal column measurement.
func TestStringWidth(t *testing.T) {
	if got := StringWidth("abc"); got != 3 {
		t.Errorf("StringWidth(abc) = %d, want 3", got)
	}
	if got := StringWidth("日本語"); got != 6 {
		t.Errorf("StringWidth(日本語) = %d, want 6", got)
	}
}
