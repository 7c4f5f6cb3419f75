package decoder

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/slidegen/internal/tokenizer"
)

// Input is the fused representation one Generate call consumes. It is owned by that
// call and never shared.
type Input struct {
	// States is the fused encoding, one row per prompt token.
	States *mat.Dense
	// Tokens are the prompt ids, aligned with States rows.
	Tokens []int
	// Pieces are the surface pieces of Tokens.
	Pieces []string
	// Vocab is the size of the id space the model scores, including overlay ids.
	Vocab int
	// Regions are the prompt spans keyed by marker piece.
	Regions map[string]tokenizer.Span
}

// LanguageModel scores continuations of a decoded prefix conditioned on an Input.
type LanguageModel interface {
	Start(ctx context.Context, in *Input) (Session, error)
}

// Session holds per-call model state. Logits returns one raw score per id in
// [0, Input.Vocab) for the token that follows prefix.
type Session interface {
	Logits(prefix []int) ([]float64, error)
}
