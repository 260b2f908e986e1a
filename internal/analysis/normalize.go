// Package analysis counts recurring words across headlines.
package analysis

import (
	"regexp"
	"strings"
)

// Only ASCII letters, digits and ASCII whitespace survive normalisation;
// accented and other non-ASCII letters are dropped.
var disallowed = regexp.MustCompile(`[^a-zA-Z0-9 \t\n\v\f\r]`)

// Normalize strips punctuation and non-ASCII characters and lower-cases text.
func Normalize(text string) string {
	return strings.ToLower(disallowed.ReplaceAllString(text, ""))
}

// Tokenize normalises text and splits it on whitespace runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(Normalize(text), isSpace)
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
