package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchSizes []int
	healthErr  error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.result.TotalTokens * len(texts),
	}, nil
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.healthErr }

func TestInstrumentedEmbedder_RecordsUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 4}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := p.Embed(ctx, "운영체제"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.EmbeddingTokens() != 4 {
		t.Errorf("expected 4 tokens, got %d", usage.EmbeddingTokens())
	}
}

func TestInstrumentedEmbedder_NoUsageCollector(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 4}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	if _, err := p.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	innerErr := errors.New("provider down")
	p := NewInstrumentedEmbedder(&mockEmbedder{err: innerErr}, "test", "m", zap.NewNop())

	if _, err := p.Embed(context.Background(), "x"); !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbedChunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}, TotalTokens: 1}}
	p := NewInstrumentedEmbedder(inner, "test", "m", zap.NewNop()).WithMaxBatchSize(2)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := p.BatchEmbed(ctx, []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 {
		t.Fatalf("expected 5 embeddings, got %d", len(res.Embeddings))
	}
	if want := []int{2, 2, 1}; len(inner.batchSizes) != 3 || inner.batchSizes[2] != want[2] {
		t.Errorf("chunk sizes = %v, want %v", inner.batchSizes, want)
	}
	if usage.EmbeddingTokens() != 5 || res.TotalTokens != 5 {
		t.Errorf("tokens: usage=%d result=%d", usage.EmbeddingTokens(), res.TotalTokens)
	}
}

func TestInstrumentedEmbedder_BatchEmbedEmpty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "m", zap.NewNop())
	if _, err := p.BatchEmbed(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batchSizes) != 0 {
		t.Error("inner must not be called for empty input")
	}
}

func TestInstrumentedEmbedder_BatchEmbedError(t *testing.T) {
	innerErr := errors.New("batch fail")
	p := NewInstrumentedEmbedder(&mockEmbedder{batchErr: innerErr}, "test", "m", zap.NewNop())
	if _, err := p.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestInstrumentedEmbedder_HealthCheckDelegates(t *testing.T) {
	down := errors.New("down")
	p := NewInstrumentedEmbedder(&mockEmbedder{healthErr: down}, "test", "m", zap.NewNop())
	if err := p.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected delegated error, got %v", err)
	}
}
