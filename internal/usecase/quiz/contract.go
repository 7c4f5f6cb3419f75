package quiz

import (
	"context"
	"image"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/pipeline"
)

// Generator encodes prompts and decodes stage outputs.
type Generator interface {
	Prepare(prompt string, img image.Image) (*pipeline.Prepared, error)
	Generate(ctx context.Context, stage string, p *pipeline.Prepared, c domain.GenerationConstraints) (pipeline.Generation, error)
}
