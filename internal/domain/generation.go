package domain

import (
	"fmt"
	"slices"
)

// GenerationConstraints configures one constrained beam search.
// The bundle is passed by value and never mutated by the decoder.
type GenerationConstraints struct {
	BeamWidth         int
	MaxNewTokens      int
	MinTokens         int
	NoRepeatNgramSize int // 0 disables the n-gram ban
	RepetitionPenalty float64
	LengthPenalty     float64
	ForcedStartTokens []int
	EarlyStopping     bool
}

// DefaultGenerationConstraints mirrors a small beam search with mild penalties.
func DefaultGenerationConstraints() GenerationConstraints {
	return GenerationConstraints{
		BeamWidth:         4,
		MaxNewTokens:      128,
		NoRepeatNgramSize: 3,
		RepetitionPenalty: 1.2,
		LengthPenalty:     1.0,
		EarlyStopping:     true,
	}
}

// Validate checks that the constraints can drive a search.
func (c GenerationConstraints) Validate() error {
	if c.BeamWidth < 1 {
		return fmt.Errorf("%w: beam_width must be >= 1, got %d", ErrInvalidConstraints, c.BeamWidth)
	}
	if c.MaxNewTokens < 1 {
		return fmt.Errorf("%w: max_new_tokens must be >= 1, got %d", ErrInvalidConstraints, c.MaxNewTokens)
	}
	if c.MinTokens < 0 || c.MinTokens > c.MaxNewTokens {
		return fmt.Errorf("%w: min_tokens must be in [0, %d], got %d",
			ErrInvalidConstraints, c.MaxNewTokens, c.MinTokens)
	}
	if c.NoRepeatNgramSize < 0 {
		return fmt.Errorf("%w: no_repeat_ngram_size must be >= 0, got %d",
			ErrInvalidConstraints, c.NoRepeatNgramSize)
	}
	if c.RepetitionPenalty <= 0 {
		return fmt.Errorf("%w: repetition_penalty must be > 0, got %g",
			ErrInvalidConstraints, c.RepetitionPenalty)
	}
	if len(c.ForcedStartTokens) > c.MaxNewTokens {
		return fmt.Errorf("%w: %d forced tokens exceed max_new_tokens %d",
			ErrInvalidConstraints, len(c.ForcedStartTokens), c.MaxNewTokens)
	}
	return nil
}

// WithForcedStart returns a copy with the given forced start tokens.
func (c GenerationConstraints) WithForcedStart(ids []int) GenerationConstraints {
	c.ForcedStartTokens = slices.Clone(ids)
	return c
}
