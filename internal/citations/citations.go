// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package citations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// markerRe matches either an already-linkified citation (first alternative,
// left alone) or a bare citation marker to rewrite. Markers are capped at
// three digits; anything longer is page text, not a citation.
var markerRe = regexp.MustCompile(`\[\[(\d{1,3})\]\]\(#[^)\s]*\)|\[(\d{1,3})\]`)

// fenceRe splits out fenced code blocks so their bracket expressions are
// never rewritten.
var fenceRe = regexp.MustCompile("(?s)```.*?```|```.*$")

// wordRe extracts scoring words: four or more letters or digits, umlauts
// included. Shorter words are mostly stopwords in both German and English.
var wordRe = regexp.MustCompile(`[A-Za-zÄÖÜäöüß0-9]{4,}`)

// sentenceRe splits snippet text into sentences on terminal punctuation.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]?`)

// AnswerAnchor returns the anchor name for a whole assistant message.
func AnswerAnchor(msgID string) string {
	return "ans-" + msgID
}

// SourceAnchor returns the anchor name for source n of a message.
func SourceAnchor(msgID string, n int) string {
	return fmt.Sprintf("src-%s-%d", msgID, n)
}

// Linkify rewrites bare citation markers [n] into [[n]](#src-<msgID>-<n>)
// links. Markers referencing a source that does not exist (n < 1 or
// n > sourceCount) stay as plain text. Fenced code blocks are untouched.
// The function is idempotent.
func Linkify(text, msgID string, sourceCount int) string {
	if sourceCount <= 0 || text == "" {
		return text
	}

	var out strings.Builder
	last := 0
	for _, span := range fenceRe.FindAllStringIndex(text, -1) {
		out.WriteString(linkifySegment(text[last:span[0]], msgID, sourceCount))
		out.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	out.WriteString(linkifySegment(text[last:], msgID, sourceCount))
	return out.String()
}

// linkifySegment rewrites markers in text known to contain no code fences.
func linkifySegment(text, msgID string, sourceCount int) string {
	return markerRe.ReplaceAllStringFunc(text, func(m string) string {
		groups := markerRe.FindStringSubmatch(m)
		if groups[1] != "" {
			// Already a citation link.
			return m
		}
		n, err := strconv.Atoi(groups[2])
		if err != nil || n < 1 || n > sourceCount {
			return m
		}
		return fmt.Sprintf("[[%d]](#%s)", n, SourceAnchor(msgID, n))
	})
}

// CitedIndexes returns the distinct source numbers cited in the text, in
// first-appearance order, ignoring markers out of range and code blocks.
func CitedIndexes(text string, sourceCount int) []int {
	var out []int
	seen := make(map[int]bool)

	scan := func(segment string) {
		for _, groups := range markerRe.FindAllStringSubmatch(segment, -1) {
			digits := groups[1]
			if digits == "" {
				digits = groups[2]
			}
			n, err := strconv.Atoi(digits)
			if err != nil || n < 1 || n > sourceCount || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}

	last := 0
	for _, span := range fenceRe.FindAllStringIndex(text, -1) {
		scan(text[last:span[0]])
		last = span[1]
	}
	scan(text[last:])
	return out
}

// BestSentence returns the snippet sentence sharing the most significant
// words with the query, or "" when nothing overlaps. Ties go to the earlier
// sentence.
func BestSentence(snippet, query string) string {
	queryWords := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		queryWords[w] = true
	}
	if len(queryWords) == 0 {
		return ""
	}

	best := ""
	bestScore := 0
	for _, raw := range sentenceRe.FindAllString(snippet, -1) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		score := 0
		for _, w := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
			if queryWords[w] {
				score++
			}
		}
		if score > bestScore {
			best = sentence
			bestScore = score
		}
	}
	return best
}

// Highlight wraps the best matching sentence of a snippet in bold markers
// so source cards show why this source was cited. The snippet is returned
// unchanged when no sentence matches.
func Highlight(snippet, query string) string {
	sentence := BestSentence(snippet, query)
	if sentence == "" {
		return snippet
	}
	return strings.Replace(snippet, sentence, "**"+sentence+"**", 1)
}
