// Package text holds the language helpers shared by keyword extraction and tokenization:
// Unicode normalisation, whitespace cleanup, script runs, a small Korean morphology
// and stopword lists.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns s in NFC with control characters turned into spaces,
// whitespace runs collapsed to one space and the ends trimmed.
// OCR output often arrives decomposed (NFD jamo), which breaks suffix matching.
func Normalize(s string) string {
	return CollapseSpace(norm.NFC.String(s))
}

// CollapseSpace replaces every run of whitespace or control characters with a single
// space and trims the result.
func CollapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Words splits normalised text on whitespace.
func Words(s string) []string {
	return strings.Fields(Normalize(s))
}

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) == ""
}
