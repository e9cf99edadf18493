// Package scoring implements the keyword-overlap heuristic that approximates
// how an applicant tracking system ranks a resume against a job description.
package scoring

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinKeywordLength is the shortest token kept by ExtractKeywords, in runes.
const MinKeywordLength = 2

// KeywordSet is a deduplicated set of normalized tokens.
type KeywordSet map[string]struct{}

// Contains reports whether word is in the set.
func (s KeywordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Sorted returns the members in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// ExtractKeywords splits text on every run of characters that are neither
// letters nor digits, lowercases the pieces and keeps those at least
// MinKeywordLength runes long.
func ExtractKeywords(text string) KeywordSet {
	set := make(KeywordSet)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		word := strings.ToLower(f)
		if utf8.RuneCountInString(word) < MinKeywordLength {
			continue
		}
		set[word] = struct{}{}
	}
	return set
}
