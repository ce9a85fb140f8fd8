// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"log"
	"strings"
)

// Default thresholds for judging whether a result set can ground an answer.
const (
	// MinResults is the fewest results that count as a usable set.
	MinResults = 2

	// MinContentChars is the least combined snippet text that counts as
	// enough material to answer from.
	MinContentChars = 900
)

// TrustedHosts are authoritative sources for the political and economic
// questions this assistant specializes in. A result set containing none of
// them triggers an official-sources second pass.
var TrustedHosts = []string{
	"bundeskanzler.de",
	"bundesregierung.de",
	"bundestag.de",
	"destatis.de",
	"bundesbank.de",
	"ecb.europa.eu",
	"europa.eu",
}

// looksWeak reports whether a result set is too thin to ground an answer.
func looksWeak(results []Result, minResults, minContentChars int) bool {
	if len(results) < minResults {
		return true
	}
	return TotalContentLen(results) < minContentChars
}

// LowTrust reports whether a result set contains no authoritative source.
// Government domains count as trusted wherever they are hosted.
func LowTrust(results []Result) bool {
	for _, r := range results {
		host := r.Host()
		if host == "" {
			continue
		}
		for _, trusted := range TrustedHosts {
			if HostMatches(host, trusted) {
				return false
			}
		}
		if strings.HasSuffix(host, ".gov") {
			return false
		}
	}
	return true
}

// QueryImprover rewrites a query that produced weak results into one more
// likely to hit. The router implements this with a model call.
type QueryImprover interface {
	ImproveQuery(ctx context.Context, query string, results []Result) (string, error)
}

// Refiner runs quality checks on first-pass results and escalates when they
// fail: one second search at advanced depth, with an improved query for weak
// sets and the official-sources hint appended for untrusted sets. Both
// conditions share the single second pass; there is never a third search.
type Refiner struct {
	searcher Searcher
	improver QueryImprover

	// officialHint is appended to the second-pass query when no
	// authoritative source answered the first.
	officialHint string

	minResults      int
	minContentChars int
}

// NewRefiner creates a refiner with default thresholds. The improver may be
// nil, which re-runs the original query at advanced depth instead of an
// improved one.
func NewRefiner(searcher Searcher, improver QueryImprover, officialHint string) *Refiner {
	return &Refiner{
		searcher:        searcher,
		improver:        improver,
		officialHint:    officialHint,
		minResults:      MinResults,
		minContentChars: MinContentChars,
	}
}

// WithThresholds overrides the weak-set thresholds from configuration.
// Non-positive values keep the defaults.
func (r *Refiner) WithThresholds(minResults, minContentChars int) *Refiner {
	if minResults > 0 {
		r.minResults = minResults
	}
	if minContentChars > 0 {
		r.minContentChars = minContentChars
	}
	return r
}

// NeedsRefinement reports whether a first-pass result set warrants the
// second search.
func (r *Refiner) NeedsRefinement(results []Result) bool {
	return looksWeak(results, r.minResults, r.minContentChars) || LowTrust(results)
}

// Refine runs the single second pass and returns the deduplicated union of
// both passes, first-pass results first. A result set that needs no
// refinement, or a second pass that fails, leaves the input untouched.
func (r *Refiner) Refine(ctx context.Context, query string, results []Result) []Result {
	weak := looksWeak(results, r.minResults, r.minContentChars)
	lowTrust := LowTrust(results)
	if !weak && !lowTrust {
		return results
	}

	second := query
	if weak && r.improver != nil {
		rewritten, err := r.improver.ImproveQuery(ctx, query, results)
		if err != nil {
			log.Printf("refine: query improvement failed, reusing original: %v", err)
		} else if strings.TrimSpace(rewritten) != "" {
			second = rewritten
		}
	}
	if lowTrust && r.officialHint != "" && !strings.Contains(second, r.officialHint) {
		second = second + " " + r.officialHint
	}

	log.Printf("refine: second pass (weak=%v lowtrust=%v, %d hits, %d chars)",
		weak, lowTrust, len(results), TotalContentLen(results))
	extra, err := r.searcher.Search(ctx, Request{
		Query: second,
		Depth: DepthAdvanced,
	})
	if err != nil {
		log.Printf("refine: second pass failed: %v", err)
		return results
	}

	merged := make([]Result, 0, len(results)+len(extra))
	merged = append(merged, results...)
	merged = append(merged, extra...)
	return Dedup(merged)
}
