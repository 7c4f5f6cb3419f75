package text

import (
	"strings"
	"unicode/utf8"
)

// Morph is the result of splitting one Hangul eojeol.
type Morph struct {
	Stem   string
	Suffix string
	// NounLike is false for words that read as predicates (e.g. "빠르다").
	NounLike bool
}

// Endings that attach to a verbal noun: the stem stays a noun ("관리한다" -> "관리").
// Longest first.
var nounEndings = []string{
	"시킨다", "합니다", "됩니다", "입니다",
	"한다", "된다", "하는", "되는", "하고", "하며", "하여", "해서", "했다",
	"하다", "되다", "이다", "이며", "이고",
	"한", "된",
}

// Particles (josa). Longest first; one-rune particles need a stem of two runes or more.
var particles = []string{
	"으로써", "으로서", "에서는", "에게서", "이라는",
	"라는", "으로", "에서", "에게", "까지", "부터", "처럼", "보다", "이나", "에는",
	"와", "과", "은", "는", "이", "가", "을", "를", "에", "의", "로", "만", "란",
}

// Predicate endings that mark the whole word as not noun-like.
var predicateEndings = []string{"습니다", "니다", "었다", "았다", "였다", "는다", "다", "요"}

// Analyze splits a Hangul run into stem and suffix.
func Analyze(run string) Morph {
	if stem, suf, ok := cutSuffix(run, nounEndings); ok {
		return Morph{Stem: stem, Suffix: suf, NounLike: true}
	}
	if stem, suf, ok := cutSuffix(run, particles); ok {
		return Morph{Stem: stem, Suffix: suf, NounLike: true}
	}
	for _, e := range predicateEndings {
		if strings.HasSuffix(run, e) && utf8.RuneCountInString(run) > utf8.RuneCountInString(e) {
			return Morph{Stem: run, NounLike: false}
		}
	}
	return Morph{Stem: run, NounLike: true}
}

// cutSuffix strips the first matching suffix. The remaining stem must be at least
// one rune long, or two when the suffix is a single rune.
func cutSuffix(run string, list []string) (string, string, bool) {
	n := utf8.RuneCountInString(run)
	for _, s := range list {
		if !strings.HasSuffix(run, s) {
			continue
		}
		sl := utf8.RuneCountInString(s)
		minStem := 1
		if sl == 1 {
			minStem = 2
		}
		if n-sl < minStem {
			continue
		}
		return strings.TrimSuffix(run, s), s, true
	}
	return "", "", false
}

// Segment splits one whitespace-delimited word into surface pieces: class runs, with
// Hangul runs further split into stem and suffix. Concatenating the pieces gives back
// the word.
func Segment(word string) []string {
	var out []string
	for _, r := range SplitRuns(word) {
		if r.Class != Hangul {
			out = append(out, r.Text)
			continue
		}
		m := Analyze(r.Text)
		out = append(out, m.Stem)
		if m.Suffix != "" {
			out = append(out, m.Suffix)
		}
	}
	return out
}

// Nouns returns noun-like tokens of s in order of appearance, duplicates included.
// Hangul stems and Latin words must be at least two runes long and not stopwords;
// pure numbers never qualify.
func Nouns(s string) []string {
	var out []string
	for _, w := range Words(s) {
		for _, r := range SplitRuns(w) {
			var cand string
			switch r.Class {
			case Hangul:
				m := Analyze(r.Text)
				if !m.NounLike {
					continue
				}
				cand = m.Stem
			case Latin, Letter:
				cand = r.Text
			default:
				continue
			}
			if utf8.RuneCountInString(cand) < 2 || IsStopword(cand) {
				continue
			}
			out = append(out, cand)
		}
	}
	return out
}

// Stems returns the content-bearing part of each run in word: Hangul stems with
// particles and endings removed, Latin words lowercased, digits as is. Punctuation
// is dropped.
func Stems(word string) []string {
	var out []string
	for _, r := range SplitRuns(word) {
		switch r.Class {
		case Punct:
			continue
		case Hangul:
			out = append(out, Analyze(r.Text).Stem)
		case Latin:
			out = append(out, strings.ToLower(r.Text))
		default:
			out = append(out, r.Text)
		}
	}
	return out
}
