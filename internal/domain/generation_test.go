package domain

import (
	"errors"
	"testing"
)

func TestGenerationConstraints_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GenerationConstraints)
		ok     bool
	}{
		{"defaults", func(*GenerationConstraints) {}, true},
		{"zero beam", func(c *GenerationConstraints) { c.BeamWidth = 0 }, false},
		{"zero max", func(c *GenerationConstraints) { c.MaxNewTokens = 0 }, false},
		{"min above max", func(c *GenerationConstraints) { c.MinTokens = c.MaxNewTokens + 1 }, false},
		{"negative ngram", func(c *GenerationConstraints) { c.NoRepeatNgramSize = -1 }, false},
		{"zero penalty", func(c *GenerationConstraints) { c.RepetitionPenalty = 0 }, false},
		{"too many forced", func(c *GenerationConstraints) {
			c.MaxNewTokens = 1
			c.ForcedStartTokens = []int{5, 6}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultGenerationConstraints()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConstraints) {
				t.Fatalf("expected ErrInvalidConstraints, got %v", err)
			}
		})
	}
}

func TestGenerationConstraints_WithForcedStartCopies(t *testing.T) {
	ids := []int{7, 8}
	c := DefaultGenerationConstraints().WithForcedStart(ids)
	ids[0] = 99
	if c.ForcedStartTokens[0] != 7 {
		t.Errorf("forced tokens alias caller slice: %v", c.ForcedStartTokens)
	}
}
