package tokenizer

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// EmbeddingTable maps pieces to fixed vectors. The vector of a piece is derived from a
// hash of its text, so overlay pieces get stable embeddings across requests and the
// same surface form embeds identically wherever it appears in a prompt.
type EmbeddingTable struct {
	dim  int
	seed uint64
}

// NewEmbeddingTable creates a table of dim-wide vectors.
func NewEmbeddingTable(dim int, seed uint64) *EmbeddingTable {
	return &EmbeddingTable{dim: dim, seed: seed}
}

// Dim returns the embedding width.
func (e *EmbeddingTable) Dim() int { return e.dim }

// Vector returns the embedding of piece.
func (e *EmbeddingTable) Vector(piece string) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(piece))
	rng := rand.New(rand.NewPCG(h.Sum64(), e.seed)) //nolint:gosec // deterministic features, not crypto
	scale := 1 / math.Sqrt(float64(e.dim))
	v := make([]float64, e.dim)
	for i := range v {
		v[i] = rng.NormFloat64() * scale
	}
	return v
}

// Embed returns a len(ids) x dim matrix of piece embeddings. Padding rows are zero.
func (e *EmbeddingTable) Embed(ov *Overlay, ids []int) *mat.Dense {
	if len(ids) == 0 {
		return nil
	}
	m := mat.NewDense(len(ids), e.dim, nil)
	for i, id := range ids {
		if id == PadID {
			continue
		}
		m.SetRow(i, e.Vector(ov.Piece(id)))
	}
	return m
}
