// Package tokenizer splits raw text into word-like tokens. A token is any
// maximal run of Unicode letters and digits; every other character is a
// split character.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into tokens, preserving input order. Empty tokens
// are discarded. The tokenizer is case-preserving; callers that need
// case-folded tokens lower-case the input first.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
