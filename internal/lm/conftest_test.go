package lm

import (
	"testing"

	"github.com/kailas-cloud/slidegen/internal/decoder"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
)

// stageFixture holds every builtin model compiled against one vocabulary.
type stageFixture struct {
	tok    *tokenizer.Tokenizer
	table  *tokenizer.EmbeddingTable
	models map[string]*Model
}

func newStageFixture(t *testing.T) *stageFixture {
	t.Helper()
	splitter := tokenizer.New(tokenizer.NewVocab(), tokenizer.Config{})

	var manifests []*Manifest
	var pieces []string
	for _, stage := range []string{StageSummary, StageQuestion, StageAnswer} {
		m, err := BuiltinManifest(stage)
		if err != nil {
			t.Fatalf("BuiltinManifest(%s): %v", stage, err)
		}
		manifests = append(manifests, m)
		pieces = append(pieces, m.Pieces(splitter.Pieces)...)
	}

	f := &stageFixture{
		tok:    tokenizer.New(tokenizer.NewVocab(pieces...), tokenizer.Config{MaxInputTokens: 512}),
		table:  tokenizer.NewEmbeddingTable(32, 1),
		models: make(map[string]*Model),
	}
	for _, m := range manifests {
		model, err := Compile(m, f.tok)
		if err != nil {
			t.Fatalf("Compile(%s): %v", m.Stage, err)
		}
		f.models[m.Stage] = model
	}
	return f
}

// input encodes prompt the way the pipeline does, without an image.
func (f *stageFixture) input(prompt string) (*decoder.Input, *tokenizer.Overlay) {
	ov := f.tok.NewOverlay()
	enc := f.tok.EncodeInput(ov, prompt)
	return &decoder.Input{
		States:  f.table.Embed(ov, enc.IDs),
		Tokens:  enc.IDs,
		Pieces:  enc.Pieces,
		Vocab:   ov.Size(),
		Regions: f.tok.Regions(enc.IDs),
	}, ov
}
