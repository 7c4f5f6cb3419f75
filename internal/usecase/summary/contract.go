package summary

import (
	"context"
	"image"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/pipeline"
)

// KeywordExtractor ranks the salient phrases of a slide's text.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string, topN int, diversity float64) (domain.KeywordSet, error)
}

// Generator encodes prompts and decodes stage outputs.
type Generator interface {
	Prepare(prompt string, img image.Image) (*pipeline.Prepared, error)
	Generate(ctx context.Context, stage string, p *pipeline.Prepared, c domain.GenerationConstraints) (pipeline.Generation, error)
	ForcedStart(p *pipeline.Prepared, phrase string) []int
}
