package openai

import (
	"strings"
	"unicode"
)

// sanitizeText strips control characters left behind by PDF extraction and
// collapses runs of whitespace so embedding requests stay small and valid JSON.
func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeTexts applies sanitizeText to each element, returning a new slice.
func sanitizeTexts(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = sanitizeText(t)
	}
	return out
}
