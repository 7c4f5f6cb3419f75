package domain

// Keyword is a ranked phrase with its relevance to the source document.
type Keyword struct {
	Phrase string  `json:"phrase"`
	Score  float64 `json:"score"`
}

// KeywordSet is an ordered, duplicate-free keyword list, highest salience first.
type KeywordSet []Keyword

// Phrases returns the phrases in rank order.
func (ks KeywordSet) Phrases() []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.Phrase
	}
	return out
}

// Top returns the highest ranked keyword.
func (ks KeywordSet) Top() (Keyword, bool) {
	if len(ks) == 0 {
		return Keyword{}, false
	}
	return ks[0], true
}

// Contains reports whether phrase is part of the set.
func (ks KeywordSet) Contains(phrase string) bool {
	for _, k := range ks {
		if k.Phrase == phrase {
			return true
		}
	}
	return false
}
