// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"testing"
	"time"
)

// TestCacheExactKey verifies hits require the identical query string and
// depth; case or whitespace variants are separate entries.
func TestCacheExactKey(t *testing.T) {
	c := NewCache(DefaultCacheTTL)
	results := []Result{{Title: "t", URL: "https://example.com"}}

	c.Put("Inflation Germany 2025", DepthBasic, results)

	if got, ok := c.Get("Inflation Germany 2025", DepthBasic); !ok || len(got) != 1 {
		t.Errorf("identical query should hit, got ok=%v len=%d", ok, len(got))
	}
	if _, ok := c.Get("inflation germany 2025", DepthBasic); ok {
		t.Error("case variant must not hit")
	}
	if _, ok := c.Get("Inflation Germany  2025", DepthBasic); ok {
		t.Error("whitespace variant must not hit")
	}
	if _, ok := c.Get("Inflation Germany 2025", DepthAdvanced); ok {
		t.Error("different depth must not hit")
	}
	if _, ok := c.Get("something else", DepthBasic); ok {
		t.Error("different query must not hit")
	}
}

// TestCacheExpiry verifies entries expire after the TTL.
func TestCacheExpiry(t *testing.T) {
	c := NewCache(DefaultCacheTTL)
	clock := time.Now()
	c.now = func() time.Time { return clock }

	c.Put("query", DepthBasic, []Result{{URL: "https://example.com"}})

	clock = clock.Add(DefaultCacheTTL - time.Second)
	if _, ok := c.Get("query", DepthBasic); !ok {
		t.Error("entry expired before TTL")
	}

	clock = clock.Add(2 * time.Second)
	if _, ok := c.Get("query", DepthBasic); ok {
		t.Error("entry survived past TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, Len() = %d", c.Len())
	}
}

// TestCacheCopiesResults verifies callers cannot mutate cached data.
func TestCacheCopiesResults(t *testing.T) {
	c := NewCache(DefaultCacheTTL)
	c.Put("q", DepthBasic, []Result{{Title: "original"}})

	got, _ := c.Get("q", DepthBasic)
	got[0].Title = "mutated"

	again, _ := c.Get("q", DepthBasic)
	if again[0].Title != "original" {
		t.Errorf("cached entry was mutated through a returned slice")
	}
}

// TestCacheEmptyResults verifies empty result sets are cached as misses-with-
// memory rather than re-searched.
func TestCacheEmptyResults(t *testing.T) {
	c := NewCache(DefaultCacheTTL)
	c.Put("nothing found", DepthBasic, nil)

	got, ok := c.Get("nothing found", DepthBasic)
	if !ok {
		t.Fatal("empty result set should still be a cache hit")
	}
	if len(got) != 0 {
		t.Errorf("expected empty results, got %d", len(got))
	}
}
