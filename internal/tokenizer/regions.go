package tokenizer

// Span is a half-open range of token positions.
type Span struct {
	Start, End int
}

// Len returns the number of positions in the span.
func (s Span) Len() int { return s.End - s.Start }

// Empty reports whether the span has no positions.
func (s Span) Empty() bool { return s.End <= s.Start }

// Regions locates the content following each prompt marker in ids. A region runs from
// the position after its marker to the next marker, EOS or padding.
func (t *Tokenizer) Regions(ids []int) map[string]Span {
	markerOf := make(map[int]string, len(Markers))
	for _, m := range Markers {
		if id, ok := t.vocab.ID(m); ok {
			markerOf[id] = m
		}
	}

	out := make(map[string]Span)
	current := ""
	start := 0
	closeRegion := func(end int) {
		if current != "" {
			out[current] = Span{Start: start, End: end}
		}
	}
	for i, id := range ids {
		if m, ok := markerOf[id]; ok {
			closeRegion(i)
			current, start = m, i+1
			continue
		}
		if id == EOSID || id == PadID {
			closeRegion(i)
			current = ""
			break
		}
	}
	if current != "" {
		closeRegion(len(ids))
	}
	return out
}
