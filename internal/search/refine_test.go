// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeSearcher returns canned results keyed on substrings of the query.
type fakeSearcher struct {
	calls   []Request
	byQuery map[string][]Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, req Request) ([]Result, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	for needle, results := range f.byQuery {
		if strings.Contains(req.Query, needle) {
			return results, nil
		}
	}
	return nil, nil
}

// fakeImprover rewrites queries deterministically.
type fakeImprover struct {
	rewrite string
	err     error
	called  bool
}

func (f *fakeImprover) ImproveQuery(ctx context.Context, query string, results []Result) (string, error) {
	f.called = true
	return f.rewrite, f.err
}

func richResults(n int) []Result {
	content := strings.Repeat("x", 600)
	out := make([]Result, n)
	for i := range out {
		out[i] = Result{
			Title:   "result",
			URL:     "https://example.com/" + string(rune('a'+i)),
			Content: content,
		}
	}
	return out
}

// TestRefineWeakResultsRetriesImproved verifies a thin first pass triggers an
// improved query at advanced depth and that both passes end up in the result.
func TestRefineWeakResultsRetriesImproved(t *testing.T) {
	improved := richResults(3)
	searcher := &fakeSearcher{byQuery: map[string][]Result{"improved": improved}}
	improver := &fakeImprover{rewrite: "improved query terms"}

	first := []Result{{Title: "thin", URL: "https://example.org/thin", Content: "tiny"}}
	r := NewRefiner(searcher, improver, "")
	got := r.Refine(context.Background(), "thin query", first)

	if !improver.called {
		t.Fatal("improver was not consulted for weak results")
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("made %d second-pass calls, want 1", len(searcher.calls))
	}
	if searcher.calls[0].Depth != DepthAdvanced {
		t.Errorf("second pass depth = %q, want advanced", searcher.calls[0].Depth)
	}
	if len(got) != 4 {
		t.Fatalf("refined set has %d results, want 4 (first pass + second pass)", len(got))
	}
	if got[0].URL != first[0].URL {
		t.Errorf("first-pass result must lead the merged set, got %+v", got[0])
	}
}

// TestRefineMergesAndDedups verifies the second pass unions with the first
// and shared URLs collapse to the first occurrence.
func TestRefineMergesAndDedups(t *testing.T) {
	first := []Result{{Title: "kept", URL: "https://example.com/a", Content: "thin"}}
	second := []Result{
		{Title: "duplicate", URL: "https://example.com/a/", Content: strings.Repeat("x", 600)},
		{Title: "fresh", URL: "https://example.com/b", Content: strings.Repeat("x", 600)},
	}
	searcher := &fakeSearcher{byQuery: map[string][]Result{"query": second}}

	r := NewRefiner(searcher, nil, "")
	got := r.Refine(context.Background(), "query", first)

	if len(got) != 2 {
		t.Fatalf("merged set has %d results, want 2", len(got))
	}
	if got[0].Title != "kept" || got[1].Title != "fresh" {
		t.Errorf("merge order or dedup wrong: %+v", got)
	}
}

// TestRefineSingleSecondPass verifies a first pass that is both weak and
// untrusted still causes exactly one extra search, carrying the improved
// query and the official-site hint together.
func TestRefineSingleSecondPass(t *testing.T) {
	hint := "site:bundesregierung.de OR site:destatis.de"
	searcher := &fakeSearcher{}
	improver := &fakeImprover{rewrite: "improved terms"}

	r := NewRefiner(searcher, improver, hint)
	r.Refine(context.Background(), "thin query", []Result{{URL: "https://blog.example.com", Content: "x"}})

	if len(searcher.calls) != 1 {
		t.Fatalf("made %d extra searches, want exactly 1", len(searcher.calls))
	}
	q := searcher.calls[0].Query
	if !strings.HasPrefix(q, "improved terms") || !strings.Contains(q, hint) {
		t.Errorf("second-pass query = %q, want improved terms plus hint", q)
	}
}

// TestRefineThresholdsConfigurable verifies the weak-set thresholds can be
// relaxed so a set the defaults would refine passes untouched.
func TestRefineThresholdsConfigurable(t *testing.T) {
	first := []Result{{URL: "https://www.destatis.de/a", Content: strings.Repeat("x", 200)}}
	searcher := &fakeSearcher{}

	r := NewRefiner(searcher, nil, "").WithThresholds(1, 100)
	if r.NeedsRefinement(first) {
		t.Error("set meets the relaxed thresholds, must not need refinement")
	}
	got := r.Refine(context.Background(), "query", first)

	if len(searcher.calls) != 0 {
		t.Errorf("made %d extra searches despite relaxed thresholds", len(searcher.calls))
	}
	if len(got) != 1 {
		t.Errorf("result set changed without cause: %+v", got)
	}

	strict := NewRefiner(searcher, nil, "")
	if !strict.NeedsRefinement(first) {
		t.Error("default thresholds must flag a single 200-char result as weak")
	}
}

// TestRefineKeepsFirstPassWhenSecondWorse verifies refinement never degrades
// the result set.
func TestRefineKeepsFirstPassWhenSecondWorse(t *testing.T) {
	first := []Result{{URL: "https://www.bundesregierung.de/a", Content: "some text"}}
	searcher := &fakeSearcher{} // second pass returns nothing
	improver := &fakeImprover{rewrite: "rewritten"}

	r := NewRefiner(searcher, improver, "")
	got := r.Refine(context.Background(), "query", first)

	if len(got) != 1 || got[0].URL != first[0].URL {
		t.Errorf("empty second pass replaced first-pass results: %+v", got)
	}
}

// TestRefineImproverFailureFallsBack verifies an improver error reuses the
// original query instead of aborting refinement.
func TestRefineImproverFailureFallsBack(t *testing.T) {
	second := richResults(2)
	searcher := &fakeSearcher{byQuery: map[string][]Result{"original": second}}
	improver := &fakeImprover{err: errors.New("model unavailable")}

	r := NewRefiner(searcher, improver, "")
	got := r.Refine(context.Background(), "original query", nil)

	if len(searcher.calls) != 1 {
		t.Fatalf("made %d calls, want 1", len(searcher.calls))
	}
	if searcher.calls[0].Query != "original query" {
		t.Errorf("second pass query = %q, want the original", searcher.calls[0].Query)
	}
	if len(got) != 2 {
		t.Errorf("refined to %d results, want 2", len(got))
	}
}

// TestRefineLowTrustAddsOfficialHint verifies an untrusted result set is
// retried with the official-site hint appended.
func TestRefineLowTrustAddsOfficialHint(t *testing.T) {
	hint := "site:bundesregierung.de OR site:destatis.de"
	trusted := []Result{
		{URL: "https://www.destatis.de/inflation", Content: strings.Repeat("x", 600)},
		{URL: "https://www.bundesbank.de/rates", Content: strings.Repeat("x", 600)},
	}
	searcher := &fakeSearcher{byQuery: map[string][]Result{hint: trusted}}

	first := richResults(3) // rich but all example.com, so low trust
	r := NewRefiner(searcher, nil, hint)
	got := r.Refine(context.Background(), "inflation rate germany", first)

	if len(searcher.calls) != 1 {
		t.Fatalf("made %d calls, want 1 hint pass", len(searcher.calls))
	}
	if !strings.Contains(searcher.calls[0].Query, hint) {
		t.Errorf("hint pass query = %q, missing hint", searcher.calls[0].Query)
	}
	if LowTrust(got) {
		t.Errorf("refined set still has no authoritative source: %+v", got)
	}
}

// TestRefineTrustedFirstPassSkipsHint verifies no hint pass runs when an
// authoritative source is already present.
func TestRefineTrustedFirstPassSkipsHint(t *testing.T) {
	first := []Result{
		{URL: "https://www.ecb.europa.eu/press", Content: strings.Repeat("x", 500)},
		{URL: "https://example.com/analysis", Content: strings.Repeat("x", 500)},
	}
	searcher := &fakeSearcher{}
	r := NewRefiner(searcher, nil, "site:europa.eu")

	got := r.Refine(context.Background(), "ecb decision", first)

	if len(searcher.calls) != 0 {
		t.Errorf("made %d second-pass calls, want 0", len(searcher.calls))
	}
	if len(got) != 2 {
		t.Errorf("result set changed without cause: %+v", got)
	}
}

// TestRefineSearchErrorsAreNonFatal verifies second-pass failures leave the
// first-pass results untouched.
func TestRefineSearchErrorsAreNonFatal(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("all credentials failed")}
	first := []Result{{URL: "https://example.com", Content: "thin"}}

	r := NewRefiner(searcher, nil, "site:europa.eu")
	got := r.Refine(context.Background(), "query", first)

	if len(got) != 1 {
		t.Errorf("failed second pass dropped results: %+v", got)
	}
}
