// Package summary turns a slide into a keyword-anchored summary.
package summary

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/lm"
	"github.com/kailas-cloud/slidegen/internal/logger"
	"github.com/kailas-cloud/slidegen/internal/metrics"
	"github.com/kailas-cloud/slidegen/internal/text"
)

// Config is the per-deployment summarisation policy.
type Config struct {
	Variant     Variant
	Instruction string
	TopN        int
	Diversity   float64
	// ForcedStart makes the summary open with the top keyword's pieces.
	ForcedStart bool
	Constraints domain.GenerationConstraints
}

// DefaultConfig returns the reference policy for v.
func DefaultConfig(v Variant) Config {
	if v == VariantText {
		return Config{
			Variant:     VariantText,
			Instruction: DefaultInstruction,
			Constraints: domain.GenerationConstraints{
				BeamWidth:         5,
				MaxNewTokens:      256,
				NoRepeatNgramSize: 6,
				RepetitionPenalty: 1,
				LengthPenalty:     1,
				EarlyStopping:     true,
			},
		}
	}
	return Config{
		Variant:     VariantMultimodal,
		Instruction: DefaultInstruction,
		TopN:        5,
		Diversity:   0.7,
		ForcedStart: true,
		Constraints: domain.GenerationConstraints{
			BeamWidth:         6,
			MaxNewTokens:      200,
			NoRepeatNgramSize: 2,
			RepetitionPenalty: 1.2,
			LengthPenalty:     1.1,
			EarlyStopping:     true,
		},
	}
}

// Service summarises slides. Safe for concurrent use.
type Service struct {
	keywords KeywordExtractor
	gen      Generator
	cfg      Config
	logger   *zap.Logger
}

// New creates a summary service.
func New(keywords KeywordExtractor, gen Generator, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{keywords: keywords, gen: gen, cfg: cfg, logger: log}
}

// Summarize produces the summary of one slide. Unusable inputs never fail the call:
// blank text becomes the no-content sentinel, a corrupt image falls back to the
// text-only path and a keyword failure yields a summary without keywords. Only
// cancellation and invalid constraints are returned as errors.
func (s *Service) Summarize(ctx context.Context, in domain.SlideInput) (domain.Summary, error) {
	log := logger.FromContextOr(ctx, s.logger).With(zap.String("variant", string(s.cfg.Variant)))
	body := text.Normalize(in.Text)
	if body == "" {
		log.Debug("slide has no text, using sentinel")
	}

	var ks domain.KeywordSet
	if s.cfg.Variant != VariantText && body != "" {
		ks = s.extractKeywords(ctx, log, body)
		if err := ctx.Err(); err != nil {
			return domain.Summary{}, fmt.Errorf("summarize: %w", err)
		}
	}

	var img image.Image
	if s.cfg.Variant != VariantText && in.HasImage() {
		img = in.Image
	}

	prompt := BuildPrompt(s.cfg.Variant, s.cfg.Instruction, ks, body)
	p, err := s.gen.Prepare(prompt, img)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("prepare summary prompt: %w", err)
	}
	if p.Truncated {
		metrics.InputTruncatedTotal.WithLabelValues(lm.StageSummary).Inc()
		log.Warn("summary prompt truncated at max input tokens")
	}
	if p.ImageErr != nil {
		log.Warn("image unusable, summarising text only", zap.Error(p.ImageErr))
	}

	cons := s.cfg.Constraints
	if top, ok := ks.Top(); ok && s.cfg.ForcedStart {
		forced := s.gen.ForcedStart(p, top.Phrase)
		if len(forced) > cons.MaxNewTokens {
			forced = forced[:cons.MaxNewTokens]
		}
		cons = cons.WithForcedStart(forced)
	}

	gen, err := s.gen.Generate(ctx, lm.StageSummary, p, cons)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize: %w", err)
	}

	out := domain.Summary{
		Text:       gen.Text,
		Keywords:   ks,
		Terminated: gen.Result.Terminated,
		Truncated:  p.Truncated,
		ImageUsed:  p.ImageUsed,
	}
	if out.Keywords == nil {
		out.Keywords = domain.KeywordSet{}
	}
	log.Debug("summary generated",
		zap.Int("tokens", len(gen.Result.Tokens)),
		zap.Bool("terminated", out.Terminated),
		zap.Bool("image_used", out.ImageUsed),
		zap.Strings("keywords", ks.Phrases()),
	)
	return out, nil
}

func (s *Service) extractKeywords(ctx context.Context, log *zap.Logger, body string) domain.KeywordSet {
	start := time.Now()
	ks, err := s.keywords.Extract(ctx, body, s.cfg.TopN, s.cfg.Diversity)
	metrics.StageDuration.WithLabelValues("keywords").Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		metrics.KeywordFallbackTotal.Inc()
		log.Warn("keyword extraction failed, continuing without keywords", zap.Error(err))
		return nil
	}
	return ks
}
