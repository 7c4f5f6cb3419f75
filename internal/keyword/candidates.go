package keyword

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/slidegen/internal/text"
)

// Policy selects how candidate phrases are drawn from a slide's text.
type Policy string

// Candidate policies.
const (
	// PolicyNouns keeps noun-like stems only.
	PolicyNouns Policy = "nouns"
	// PolicyNounNgrams keeps 1..2-grams over the noun sequence.
	PolicyNounNgrams Policy = "noun_ngrams"
	// PolicyNgrams keeps 1..2-word spans of the raw text whose edge words are not stopwords.
	PolicyNgrams Policy = "ngrams"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyNouns, PolicyNounNgrams, PolicyNgrams:
		return p, nil
	default:
		return "", fmt.Errorf("unknown keyword policy %q", s)
	}
}

// Candidates returns the unique candidate phrases of s in first-occurrence order, plus
// the document text they are compared against.
func Candidates(p Policy, s string) (cands []string, doc string) {
	switch p {
	case PolicyNounNgrams:
		nouns := text.Nouns(s)
		return dedupe(ngrams(nouns, 2)), strings.Join(nouns, " ")
	case PolicyNgrams:
		return dedupe(wordSpans(s, 2)), text.Normalize(s)
	default:
		nouns := text.Nouns(s)
		return dedupe(nouns), strings.Join(nouns, " ")
	}
}

// ngrams emits every 1..n-gram of tokens, shorter grams first at each position.
// Grams repeating the same token are skipped.
func ngrams(tokens []string, n int) []string {
	var out []string
	for i := range tokens {
		for size := 1; size <= n && i+size <= len(tokens); size++ {
			gram := tokens[i : i+size]
			if size > 1 && gram[0] == gram[size-1] {
				continue
			}
			out = append(out, strings.Join(gram, " "))
		}
	}
	return out
}

// wordSpans emits 1..n-word spans of the raw words with punctuation trimmed off the
// span edges. Spans starting or ending in a stopword or a bare number are skipped.
func wordSpans(s string, n int) []string {
	words := text.Words(s)
	var out []string
	for i := range words {
		for size := 1; size <= n && i+size <= len(words); size++ {
			first := text.TrimPunct(words[i])
			last := text.TrimPunct(words[i+size-1])
			if !contentWord(first) || !contentWord(last) {
				continue
			}
			span := append([]string(nil), words[i:i+size]...)
			span[0] = text.TrimPunct(span[0])
			span[size-1] = text.TrimPunct(span[size-1])
			out = append(out, strings.Join(span, " "))
		}
	}
	return out
}

func contentWord(w string) bool {
	if w == "" || text.IsStopword(w) {
		return false
	}
	for _, r := range text.SplitRuns(w) {
		if r.Class != text.Digit && r.Class != text.Punct {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = text.Normalize(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
