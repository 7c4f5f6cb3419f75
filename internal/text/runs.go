package text

import "unicode"

// Class is the script class of a run.
type Class int

// Run classes.
const (
	Hangul Class = iota
	Latin
	Digit
	Punct
	Letter // any other script
)

// Run is a maximal substring of one class.
type Run struct {
	Text  string
	Class Class
}

// ClassOf returns the class of a single rune.
func ClassOf(r rune) Class {
	switch {
	case unicode.Is(unicode.Hangul, r):
		return Hangul
	case r < unicode.MaxASCII && unicode.IsLetter(r):
		return Latin
	case unicode.IsDigit(r):
		return Digit
	case unicode.IsLetter(r) || unicode.IsMark(r):
		return Letter
	default:
		return Punct
	}
}

// SplitRuns cuts a word into class runs. Punctuation is emitted one rune per run
// so that "20바이트이다." ends with a standalone ".".
func SplitRuns(word string) []Run {
	var runs []Run
	start := 0
	prev := Class(-1)
	for i, r := range word {
		c := ClassOf(r)
		if i > 0 && (c != prev || c == Punct) {
			runs = append(runs, Run{Text: word[start:i], Class: prev})
			start = i
		}
		prev = c
	}
	if start < len(word) {
		runs = append(runs, Run{Text: word[start:], Class: prev})
	}
	return runs
}
