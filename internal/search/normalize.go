package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parenPattern   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	nonAlnumRuns   = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// foldMarks decomposes accented runes and drops the combining marks so
// "Beyoncé" and "Beyonce" produce the same key.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeKeyPart lowercases, strips parenthesized and bracketed
// spans, folds accents, and collapses non-alphanumeric runs to single
// spaces. "Song Title (Remastered 2011)" and "song title" collide.
func normalizeKeyPart(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	value = parenPattern.ReplaceAllString(value, " ")
	if folded, _, err := transform.String(foldMarks, value); err == nil {
		value = folded
	}
	value = nonAlnumRuns.ReplaceAllString(value, " ")
	value = whitespaceRuns.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// mergeKey is the fuzzy text identity of a track across providers.
func mergeKey(title, artist string) string {
	return normalizeKeyPart(title) + "|" + normalizeKeyPart(artist)
}
