package slidegen

import "github.com/kailas-cloud/slidegen/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidConstraints     = domain.ErrInvalidConstraints
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrModelNotLoaded         = domain.ErrModelNotLoaded
	ErrInvalidWeights         = domain.ErrInvalidWeights
	ErrCorruptImage           = domain.ErrCorruptImage
)
