// Package local provides an in-process embedding provider that needs no network access.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"unicode/utf8"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/text"
)

// DefaultDim is the vector width used when none is configured.
const DefaultDim = 256

// Embedder is a feature-hashing embedder: word stems and character bigrams of the
// stems are hashed into a fixed number of signed buckets and the vector is
// L2-normalised. Results are deterministic, so it also serves as a test double for
// ranking code.
type Embedder struct {
	dim          int
	bigramWeight float64
}

// NewEmbedder creates a hashing embedder of width dim (DefaultDim when dim <= 0).
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Embedder{dim: dim, bigramWeight: 0.5}
}

// Dim returns the vector width.
func (e *Embedder) Dim() int { return e.dim }

// Embed implements domain.Embedder. TotalTokens counts the hashed features.
func (e *Embedder) Embed(ctx context.Context, s string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // context error passes through unchanged
	}
	vec, n := e.vector(s)
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: n}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, s := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, err //nolint:wrapcheck // context error passes through unchanged
		}
		vec, n := e.vector(s)
		out.Embeddings[i] = vec
		out.TotalTokens += n
	}
	return out, nil
}

// HealthCheck implements domain.HealthChecker. The embedder is always available.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vector(s string) ([]float32, int) {
	acc := make([]float64, e.dim)
	features := 0
	for _, w := range text.Words(s) {
		for _, stem := range text.Stems(w) {
			e.add(acc, "w:"+stem, 1)
			features++
			if utf8.RuneCountInString(stem) < 2 {
				continue
			}
			runes := []rune(stem)
			for i := 0; i+1 < len(runes); i++ {
				e.add(acc, "b:"+string(runes[i:i+2]), e.bigramWeight)
				features++
			}
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, e.dim)
	if norm == 0 {
		return out, features
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out, features
}

func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim)) //nolint:gosec // dim is positive and small
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}
