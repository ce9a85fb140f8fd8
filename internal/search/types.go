// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"net/url"
	"strings"
)

// Depth selects how much work the search provider spends on a query.
type Depth string

// Search depths understood by the provider.
const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// DefaultMaxResults caps how many results a single search returns.
const DefaultMaxResults = 6

// ExcludedDomains are low-signal social platforms whose results are never
// used for grounding, whether the provider filtered them or not.
var ExcludedDomains = []string{
	"instagram.com",
	"tiktok.com",
	"facebook.com",
	"x.com",
	"twitter.com",
	"pinterest.com",
	"reddit.com",
}

// Result is a single web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Host returns the lowercased hostname of the result URL, or "" when the URL
// does not parse.
func (r Result) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// HostMatches reports whether host is the domain itself or a subdomain of it.
func HostMatches(host, domain string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// IsExcludedHost reports whether a host belongs to an excluded domain.
func IsExcludedHost(host string) bool {
	if host == "" {
		return false
	}
	for _, d := range ExcludedDomains {
		if HostMatches(host, d) {
			return true
		}
	}
	return false
}

// FilterExcluded drops results from excluded domains. The input slice is not
// modified.
func FilterExcluded(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if IsExcludedHost(r.Host()) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// normalizeURL produces the dedup key for a result URL: lowercased scheme and
// host, no fragment, no trailing slash.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.TrimSpace(strings.ToLower(raw)), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	s := u.String()
	return strings.TrimRight(s, "/")
}

// Dedup removes results whose identity was already seen, keeping first
// occurrences in order. Identity is the normalized URL; a result without a
// URL falls back to its lowercased title. Running it twice changes nothing.
func Dedup(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		key := normalizeURL(r.URL)
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(r.Title))
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// TotalContentLen returns the combined snippet length across results,
// used to judge whether a result set can ground an answer.
func TotalContentLen(results []Result) int {
	n := 0
	for _, r := range results {
		n += len(r.Content)
	}
	return n
}
