package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals text that is empty or whitespace-only.
	ErrEmptyInput = errors.New("empty input")
	// ErrCorruptImage signals an image that cannot be decoded or has no pixels.
	ErrCorruptImage = errors.New("corrupt image")
	// ErrShapeMismatch signals incompatible matrix dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidConstraints signals a generation constraint bundle that cannot drive a search.
	ErrInvalidConstraints = errors.New("invalid generation constraints")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelNotLoaded signals a pipeline stage without a language model.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrInvalidWeights signals weights that do not match the configured architecture.
	ErrInvalidWeights = errors.New("invalid weights")
)

// ShapeError describes a dimension mismatch between two matrices.
type ShapeError struct {
	Op       string
	Got      int
	Expected int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: got %d, expected %d", ErrShapeMismatch.Error(), e.Op, e.Got, e.Expected)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// NewShapeError creates a shape mismatch error for the named operation.
func NewShapeError(op string, got, expected int) error {
	return &ShapeError{Op: op, Got: got, Expected: expected}
}
