// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a search response stays reusable. Long enough
// to cover a user asking the same thing twice in one session, short enough
// that "latest" queries stay fresh.
const DefaultCacheTTL = 5 * time.Minute

// cacheEntry is one cached result set.
type cacheEntry struct {
	results []Result
	expires time.Time
}

// Cache is a TTL cache keyed on the exact query string plus depth. Safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewCache creates a cache. A TTL of zero or less selects DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey combines the exact query text with the depth. Deliberately no
// case folding or whitespace collapsing: a query is reused verbatim or not
// at all.
func cacheKey(query string, depth Depth) string {
	return query + "|" + string(depth)
}

// Get returns the cached results for a query, or nil and false on a miss or
// an expired entry. Expired entries are removed on access.
func (c *Cache) Get(query string, depth Depth) ([]Result, bool) {
	key := cacheKey(query, depth)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}

	// Copy so callers cannot mutate the cached slice.
	out := make([]Result, len(entry.results))
	copy(out, entry.results)
	return out, true
}

// Put stores results for a query. Empty result sets are cached too: a query
// that found nothing will find nothing five minutes from now as well.
func (c *Cache) Put(query string, depth Depth, results []Result) {
	key := cacheKey(query, depth)

	stored := make([]Result, len(results))
	copy(stored, results)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		results: stored,
		expires: c.now().Add(c.ttl),
	}
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge removes all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
