// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"
)

// OfficialHint is appended to a search query when results lack any
// authoritative source. The site: operators steer the provider toward
// government and central-bank portals.
const OfficialHint = "site:bundesregierung.de OR site:bundeskanzler.de OR site:bundestag.de OR site:destatis.de OR site:ecb.europa.eu OR site:bundesbank.de OR site:europa.eu"

// ============================================================================
// FORCED-SEARCH KEYWORDS
// ============================================================================

// politicsKeywords force search for political topics. German terms first,
// English equivalents after; party names and conflict regions included
// because questions about them are almost always about current events.
var politicsKeywords = []string{
	"politik", "regierung", "bundestag", "parlament", "gesetz", "verordnung",
	"wahl", "umfrage", "koalition", "minister", "kanzler",
	"cdu", "spd", "afd", "grüne", "fdp",
	"politics", "government", "election", "poll", "parliament", "bill", "law",
	"ukraine", "russland", "russia", "israel", "gaza", "un", "nato", "eu",
}

// economicsKeywords force search for macro and market topics.
var economicsKeywords = []string{
	"wirtschaft", "inflation", "zinsen", "ezb", "fed", "gdp", "bip",
	"arbeitsmarkt", "rezession", "konjunktur",
	"börse", "aktie", "aktien", "dax", "dow", "nasdaq", "s&p",
	"bitcoin", "krypto", "crypto", "wechselkurs", "eur/usd", "oil", "brent",
	"economy", "interest rate", "stocks", "market", "bond", "yield",
}

// changeableKeywords force search for anything phrased around a current
// value. A question containing "heute" or "latest" dates itself instantly.
var changeableKeywords = []string{
	"preis", "kosten", "tarif", "zins", "rate", "kurs",
	"heute", "aktuell", "stand", "news",
	"latest", "today", "breaking", "forecast", "prognose",
}

// ============================================================================
// CLASSIFICATION FUNCTIONS
// ============================================================================

// matchAny reports whether the lowercased query contains any keyword.
func matchAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ForceSearch reports whether a query must be grounded regardless of what
// the classifier would say. Matching is plain substring containment on the
// lowercased query; false positives are acceptable because an unnecessary
// search only costs latency, while a missed one costs correctness.
func ForceSearch(query string) bool {
	q := strings.ToLower(query)
	return matchAny(q, politicsKeywords) ||
		matchAny(q, economicsKeywords) ||
		matchAny(q, changeableKeywords)
}

// ForcedTopic names which keyword list matched, for logging and status
// display. Returns "" when no list matches.
func ForcedTopic(query string) string {
	q := strings.ToLower(query)
	switch {
	case matchAny(q, politicsKeywords):
		return "politics"
	case matchAny(q, economicsKeywords):
		return "economics"
	case matchAny(q, changeableKeywords):
		return "changeable"
	default:
		return ""
	}
}
