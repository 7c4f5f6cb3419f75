package health

import (
	"context"

	"github.com/kailas-cloud/slidegen/internal/decoder"
)

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// ModelRegistry resolves the language model of a pipeline stage.
type ModelRegistry interface {
	Model(stage string) (decoder.LanguageModel, error)
}
