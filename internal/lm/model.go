// Package lm provides the language models the decoder runs. The shipped model is a
// scaffolded pointer model: a manifest fixes the shape of the output (literal
// pieces, copied spans, label choices) and the model fills copied spans by pointing
// at positions of a prompt region, guided by the fused encoder states.
package lm

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/slidegen/internal/decoder"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
)

type segmentKind int

const (
	kindLiteral segmentKind = iota
	kindCopy
	kindChoice
)

type segment struct {
	kind    segmentKind
	literal []int
	min     int
	max     int
	stop    map[int]bool
	avoid   map[int]bool
	labels  []int
	exit    int // token that leaves a copy segment: next literal's first id or EOS
}

// Model is a read-only pointer model compiled against one vocabulary.
type Model struct {
	stage    string
	copyFrom string
	anchor   string
	coef     Coefficients
	segments []segment
	labels   map[string]bool // label pieces of every choice segment
	eos      int
}

var _ decoder.LanguageModel = (*Model)(nil)

// Compile resolves the manifest's pieces against tok's base vocabulary.
func Compile(m *Manifest, tok *tokenizer.Tokenizer) (*Model, error) {
	v := tok.Vocab()
	id := func(piece string) (int, error) {
		i, ok := v.ID(piece)
		if !ok {
			return 0, fmt.Errorf("manifest %s: piece %q missing from vocabulary", m.Stage, piece)
		}
		return i, nil
	}

	out := &Model{
		stage:    m.Stage,
		copyFrom: m.CopyFrom,
		anchor:   m.Anchor,
		coef:     m.Coefficients,
		eos:      tokenizer.EOSID,
		segments: make([]segment, len(m.Segments)),
		labels:   make(map[string]bool),
	}
	for i, s := range m.Segments {
		var seg segment
		switch {
		case s.Literal != "":
			seg.kind = kindLiteral
			for _, p := range tok.Pieces(s.Literal) {
				pid, err := id(p)
				if err != nil {
					return nil, err
				}
				seg.literal = append(seg.literal, pid)
			}
		case s.Copy != nil:
			seg.kind = kindCopy
			seg.min, seg.max = s.Copy.Min, s.Copy.Max
			seg.stop = make(map[int]bool, len(s.Copy.Stop))
			for _, p := range s.Copy.Stop {
				if pid, ok := v.ID(p); ok {
					seg.stop[pid] = true
				}
			}
			seg.avoid = make(map[int]bool, len(s.Copy.Avoid))
			for _, p := range s.Copy.Avoid {
				if pid, ok := v.ID(p); ok {
					seg.avoid[pid] = true
				}
			}
		case s.Choice != nil:
			seg.kind = kindChoice
			for _, l := range s.Choice.Labels {
				pid, err := id(labelPiece(l))
				if err != nil {
					return nil, err
				}
				seg.labels = append(seg.labels, pid)
				out.labels[labelPiece(l)] = true
			}
		}
		out.segments[i] = seg
	}
	for i := range out.segments {
		if out.segments[i].kind != kindCopy {
			continue
		}
		out.segments[i].exit = out.eos
		if i+1 < len(out.segments) {
			out.segments[i].exit = out.segments[i+1].literal[0]
		}
	}
	return out, nil
}

// Stage returns the manifest's stage name.
func (m *Model) Stage() string { return m.stage }

// Start implements decoder.LanguageModel.
func (m *Model) Start(ctx context.Context, in *decoder.Input) (decoder.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error passes through unchanged
	}
	return newSession(m, in), nil
}
