package domain

// Extraction is the outcome of pulling one structured field out of generated text:
// either Parsed(value) or Unparsed(raw). The raw text is kept in both cases.
type Extraction[T any] struct {
	value T
	raw   string
	ok    bool
}

// Parsed creates a successful extraction.
func Parsed[T any](value T, raw string) Extraction[T] {
	return Extraction[T]{value: value, raw: raw, ok: true}
}

// Unparsed creates a failed extraction that carries only the raw text.
func Unparsed[T any](raw string) Extraction[T] {
	return Extraction[T]{raw: raw}
}

// OK reports whether the field was extracted.
func (e Extraction[T]) OK() bool { return e.ok }

// Value returns the extracted value, or the zero value when unparsed.
func (e Extraction[T]) Value() T { return e.value }

// Raw returns the text the extraction was attempted on.
func (e Extraction[T]) Raw() string { return e.raw }

// Or returns the extracted value, or fallback when unparsed.
func (e Extraction[T]) Or(fallback T) T {
	if e.ok {
		return e.value
	}
	return fallback
}
