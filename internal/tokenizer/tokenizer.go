// Package tokenizer converts prompts into SentencePiece-style pieces and ids and back.
//
// A piece that begins a word carries the "▁" marker; Korean particles and endings are
// split off the stem into their own pieces so that stems line up with keywords.
package tokenizer

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/slidegen/internal/text"
)

// Config controls input-side length handling.
type Config struct {
	// MaxInputTokens bounds encoded prompts, EOS included. Pieces past the boundary are
	// dropped and the encoding is flagged Truncated. 0 disables the bound.
	MaxInputTokens int
	// PadToMaxLength pads encoded prompts with <pad> up to MaxInputTokens.
	PadToMaxLength bool
}

// Tokenizer is safe for concurrent use; per-request state lives in an Overlay.
type Tokenizer struct {
	vocab *Vocab
	cfg   Config
}

// New creates a tokenizer over vocab.
func New(vocab *Vocab, cfg Config) *Tokenizer {
	return &Tokenizer{vocab: vocab, cfg: cfg}
}

// Vocab returns the base vocabulary.
func (t *Tokenizer) Vocab() *Vocab { return t.vocab }

// NewOverlay returns a fresh per-request overlay over the base vocabulary.
func (t *Tokenizer) NewOverlay() *Overlay { return NewOverlay(t.vocab) }

// Encoding is an encoded prompt.
type Encoding struct {
	IDs       []int
	Pieces    []string
	Mask      []bool // false on padding
	Truncated bool
}

// Len returns the number of non-padding positions.
func (e Encoding) Len() int {
	n := 0
	for _, m := range e.Mask {
		if m {
			n++
		}
	}
	return n
}

// Pieces splits s into pieces without looking anything up.
func (t *Tokenizer) Pieces(s string) []string {
	var out []string
	for _, w := range text.Words(s) {
		if _, ok := t.vocab.ID(w); ok && isAtomic(w) {
			out = append(out, w)
			continue
		}
		for i, seg := range text.Segment(w) {
			if i == 0 {
				seg = WordMarker + seg
			}
			out = append(out, seg)
		}
	}
	return out
}

// isAtomic reports whether w is a marker or sentinel that must never be split.
func isAtomic(w string) bool {
	return (strings.HasPrefix(w, "[") && strings.HasSuffix(w, "]")) ||
		(strings.HasPrefix(w, "<") && strings.HasSuffix(w, ">"))
}

// Encode returns the ids of s without specials, truncation or padding.
func (t *Tokenizer) Encode(ov *Overlay, s string) []int {
	pieces := t.Pieces(s)
	ids := make([]int, len(pieces))
	for i, p := range pieces {
		ids[i] = ov.Lookup(p)
	}
	return ids
}

// EncodeInput encodes a prompt: pieces, truncated to MaxInputTokens-1, then EOS,
// then optional padding.
func (t *Tokenizer) EncodeInput(ov *Overlay, s string) Encoding {
	pieces := t.Pieces(s)
	var enc Encoding
	if limit := t.cfg.MaxInputTokens - 1; t.cfg.MaxInputTokens > 0 && len(pieces) > limit {
		pieces = pieces[:limit]
		enc.Truncated = true
	}
	pieces = append(pieces, EOSToken)

	enc.Pieces = pieces
	enc.IDs = make([]int, len(pieces))
	enc.Mask = make([]bool, len(pieces))
	for i, p := range pieces {
		enc.IDs[i] = ov.Lookup(p)
		enc.Mask[i] = true
	}
	if t.cfg.PadToMaxLength {
		for len(enc.IDs) < t.cfg.MaxInputTokens {
			enc.IDs = append(enc.IDs, PadID)
			enc.Pieces = append(enc.Pieces, PadToken)
			enc.Mask = append(enc.Mask, false)
		}
	}
	return enc
}

var artifactRe = regexp.MustCompile(`<extra_id_\d+>|<pad>|</s>|<unk>`)

// Decode turns ids back into text: word markers become spaces, generation artifacts
// are stripped, whitespace is collapsed and trimmed.
func (t *Tokenizer) Decode(ov *Overlay, ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(ov.Piece(id))
	}
	return Clean(b.String())
}

// Clean strips generation artifacts from already detokenised text.
func Clean(s string) string {
	s = strings.ReplaceAll(s, WordMarker, " ")
	s = artifactRe.ReplaceAllString(s, " ")
	return text.CollapseSpace(s)
}
