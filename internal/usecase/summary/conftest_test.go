package summary

import (
	"context"
	"image"

	"github.com/kailas-cloud/slidegen/internal/decoder"
	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/pipeline"
)

// --- mock keyword extractor ---

type mockExtractor struct {
	set   domain.KeywordSet
	err   error
	calls int
	text  string
}

func (m *mockExtractor) Extract(_ context.Context, text string, topN int, _ float64) (domain.KeywordSet, error) {
	m.calls++
	m.text = text
	if m.err != nil {
		return nil, m.err
	}
	if topN < len(m.set) {
		return m.set[:topN], nil
	}
	return m.set, nil
}

// --- mock generator ---

type mockGenerator struct {
	text      string
	truncated bool
	imageErr  error
	genErr    error

	prompt  string
	image   image.Image
	phrase  string
	forced  []int
	cons    domain.GenerationConstraints
	stage   string
	prepErr error
}

func (m *mockGenerator) Prepare(prompt string, img image.Image) (*pipeline.Prepared, error) {
	m.prompt = prompt
	m.image = img
	if m.prepErr != nil {
		return nil, m.prepErr
	}
	return &pipeline.Prepared{
		Truncated: m.truncated,
		ImageUsed: img != nil && m.imageErr == nil,
		ImageErr:  m.imageErr,
	}, nil
}

func (m *mockGenerator) Generate(_ context.Context, stage string, _ *pipeline.Prepared, c domain.GenerationConstraints) (pipeline.Generation, error) {
	m.stage = stage
	m.cons = c
	gen := pipeline.Generation{Text: m.text, Result: decoder.Result{Tokens: []int{3, 4}, Terminated: true}}
	return gen, m.genErr
}

func (m *mockGenerator) ForcedStart(_ *pipeline.Prepared, phrase string) []int {
	m.phrase = phrase
	if m.forced != nil {
		return m.forced
	}
	return []int{10, 11}
}

func keywords(phrases ...string) domain.KeywordSet {
	ks := make(domain.KeywordSet, len(phrases))
	for i, p := range phrases {
		ks[i] = domain.Keyword{Phrase: p, Score: 1 - float64(i)*0.1}
	}
	return ks
}
