package keyword

import (
	"context"
	"errors"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

var errEmbed = errors.New("provider down")

// vectorEmbedder returns fixed vectors per text; unknown texts get the doc vector.
type vectorEmbedder struct {
	vectors map[string][]float32
	doc     []float32
	err     error
	calls   int
}

func (m *vectorEmbedder) Embed(_ context.Context, s string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if v, ok := m.vectors[s]; ok {
		return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
	}
	return domain.EmbeddingResult{Embedding: m.doc, TotalTokens: 1}, nil
}

// countingEmbedder wraps another embedder and counts calls.
type countingEmbedder struct {
	inner domain.Embedder
	calls int
}

func (m *countingEmbedder) Embed(ctx context.Context, s string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.inner.Embed(ctx, s)
}
