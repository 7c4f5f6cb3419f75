package quiz

import (
	"context"
	"image"

	"github.com/kailas-cloud/slidegen/internal/decoder"
	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/pipeline"
)

// --- scripted generator ---

type scriptedGenerator struct {
	outputs map[string]string
	errs    map[string]error
	prompts map[string]string
	stages  []string
	last    string
}

func newScripted(question, answer string) *scriptedGenerator {
	return &scriptedGenerator{
		outputs: map[string]string{"question": question, "answer": answer},
		errs:    map[string]error{},
		prompts: map[string]string{},
	}
}

func (g *scriptedGenerator) Prepare(prompt string, _ image.Image) (*pipeline.Prepared, error) {
	g.last = prompt
	return &pipeline.Prepared{}, nil
}

func (g *scriptedGenerator) Generate(_ context.Context, stage string, _ *pipeline.Prepared, _ domain.GenerationConstraints) (pipeline.Generation, error) {
	g.stages = append(g.stages, stage)
	g.prompts[stage] = g.last
	if err := g.errs[stage]; err != nil {
		return pipeline.Generation{}, err
	}
	return pipeline.Generation{
		Text:   g.outputs[stage],
		Result: decoder.Result{Terminated: true},
	}, nil
}
