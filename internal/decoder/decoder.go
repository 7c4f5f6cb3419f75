// Package decoder implements constrained beam search over a LanguageModel.
package decoder

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/logger"
	"github.com/kailas-cloud/slidegen/internal/vecmath"
)

// Result is the winning hypothesis. Tokens exclude the end token.
type Result struct {
	Tokens     []int
	Score      float64
	Terminated bool // false: best partial beam, no hypothesis emitted the end token
	Steps      int
}

// Decoder runs beam searches. It holds no per-call state and is safe for concurrent use.
type Decoder struct {
	eos    int
	logger *zap.Logger
}

// New creates a decoder that treats eos as the end token.
func New(eos int, log *zap.Logger) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{eos: eos, logger: log}
}

type beam struct {
	tokens []int
	score  float64 // cumulative log-probability
}

type hypothesis struct {
	tokens []int
	score  float64 // length-normalised
}

// Generate searches for the best continuation of in under c.
//
// Forced start tokens are pinned in every beam before any penalty or ban is applied
// and cost no score. If no hypothesis ends before MaxNewTokens the best partial beam
// is returned with Terminated=false. When ctx is cancelled the best partial beam is
// returned together with the context error.
func (d *Decoder) Generate(ctx context.Context, model LanguageModel, in *Input, c domain.GenerationConstraints) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err //nolint:wrapcheck // already carries ErrInvalidConstraints
	}
	if model == nil {
		return Result{}, domain.ErrModelNotLoaded
	}
	sess, err := model.Start(ctx, in)
	if err != nil {
		return Result{}, fmt.Errorf("start session: %w", err)
	}

	s := search{d: d, c: c, vocab: in.Vocab, beams: []beam{{}}}
	res, err := s.run(ctx, sess)

	logger.FromContextOr(ctx, d.logger).Debug("beam search finished",
		zap.Int("steps", res.Steps),
		zap.Int("tokens", len(res.Tokens)),
		zap.Bool("terminated", res.Terminated),
		zap.Float64("score", res.Score),
	)
	return res, err
}

type search struct {
	d        *Decoder
	c        domain.GenerationConstraints
	vocab    int
	beams    []beam
	finished []hypothesis
	steps    int
}

func (s *search) run(ctx context.Context, sess Session) (Result, error) {
	forced := s.c.ForcedStartTokens
	for step := range s.c.MaxNewTokens {
		if err := ctx.Err(); err != nil {
			return s.result(), fmt.Errorf("decode interrupted: %w", err)
		}

		if step < len(forced) {
			for i := range s.beams {
				s.beams[i].tokens = append(slices.Clip(s.beams[i].tokens), forced[step])
			}
			continue
		}

		s.steps++
		next, err := s.expand(sess, step)
		if err != nil {
			return s.result(), err
		}
		if len(next) == 0 {
			break
		}
		s.beams = next
		if s.done(step + 1) {
			break
		}
	}
	return s.result(), nil
}

// expand scores every live beam and returns the survivors. Hypotheses ending in EOS
// are moved to the finished set.
func (s *search) expand(sess Session, step int) ([]beam, error) {
	width := s.c.BeamWidth
	type candidate struct {
		beam  int
		id    int
		score float64
	}
	var cands []candidate
	logp := make([]float64, s.vocab)

	for bi, b := range s.beams {
		logits, err := sess.Logits(b.tokens)
		if err != nil {
			return nil, fmt.Errorf("logits at step %d: %w", step, err)
		}
		if len(logits) != s.vocab {
			return nil, fmt.Errorf("logits at step %d: %w", step,
				domain.NewShapeError("vocab", len(logits), s.vocab))
		}
		logits = slices.Clone(logits)

		applyRepetitionPenalty(logits, b.tokens, s.c.RepetitionPenalty)
		vecmath.LogSoftmax(logp, logits)
		banRepeatedNgrams(logp, b.tokens, s.c.NoRepeatNgramSize)
		if len(b.tokens) < s.c.MinTokens && s.d.eos >= 0 && s.d.eos < s.vocab {
			logp[s.d.eos] = math.Inf(-1)
		}

		for _, t := range topK(logp, 2*width) {
			cands = append(cands, candidate{beam: bi, id: t.id, score: b.score + t.score})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	next := make([]beam, 0, width)
	for rank, cand := range cands {
		if len(next) == width {
			break
		}
		tokens := s.beams[cand.beam].tokens
		if cand.id == s.d.eos {
			if rank < width {
				s.finish(tokens, cand.score)
			}
			continue
		}
		next = append(next, beam{
			tokens: append(slices.Clip(tokens), cand.id),
			score:  cand.score,
		})
	}
	return next, nil
}

func (s *search) finish(tokens []int, sum float64) {
	h := hypothesis{tokens: slices.Clone(tokens), score: s.normalise(sum, len(tokens)+1)}
	s.finished = append(s.finished, h)
	sort.SliceStable(s.finished, func(i, j int) bool { return s.finished[i].score > s.finished[j].score })
	if len(s.finished) > s.c.BeamWidth {
		s.finished = s.finished[:s.c.BeamWidth]
	}
}

func (s *search) normalise(sum float64, length int) float64 {
	if length < 1 {
		length = 1
	}
	return sum / math.Pow(float64(length), s.c.LengthPenalty)
}

// done reports whether the search may stop after curLen generated tokens.
func (s *search) done(curLen int) bool {
	if len(s.finished) < s.c.BeamWidth {
		return false
	}
	if s.c.EarlyStopping {
		return true
	}
	worst := s.finished[len(s.finished)-1].score
	return s.normalise(s.beams[0].score, curLen) <= worst
}

func (s *search) result() Result {
	if len(s.finished) > 0 {
		best := s.finished[0]
		return Result{Tokens: best.tokens, Score: best.score, Terminated: true, Steps: s.steps}
	}
	best := s.beams[0]
	for _, b := range s.beams[1:] {
		if b.score > best.score {
			best = b
		}
	}
	return Result{
		Tokens: slices.Clone(best.tokens),
		Score:  s.normalise(best.score, len(best.tokens)),
		Steps:  s.steps,
	}
}
