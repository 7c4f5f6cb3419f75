package slidegen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/db"
	dbRedis "github.com/kailas-cloud/slidegen/internal/db/redis"
	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/metrics"
	"github.com/kailas-cloud/slidegen/internal/pipeline"
	"github.com/kailas-cloud/slidegen/internal/repository/embcache"
	"github.com/kailas-cloud/slidegen/internal/transport/local"
	healthuc "github.com/kailas-cloud/slidegen/internal/usecase/health"
	quizuc "github.com/kailas-cloud/slidegen/internal/usecase/quiz"
	summaryuc "github.com/kailas-cloud/slidegen/internal/usecase/summary"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced in tests.
type summaryUseCase interface {
	Summarize(ctx context.Context, in domain.SlideInput) (domain.Summary, error)
}

type quizUseCase interface {
	GenerateQuiz(ctx context.Context, summary string) (domain.QuizRecord, error)
}

// Client is the slidegen SDK entry point. Safe for concurrent use.
type Client struct {
	store      db.Store
	summarySvc summaryUseCase
	quizSvc    quizUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New builds every model and, when a cache address is given, connects to it.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{variant: VariantMultimodal}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.variant != VariantMultimodal && cfg.variant != VariantText {
		return nil, fmt.Errorf("slidegen: unknown variant %q", cfg.variant)
	}
	if cfg.keywordsSet && (cfg.topN < 0 || cfg.diversity < 0 || cfg.diversity > 1) {
		return nil, fmt.Errorf("slidegen: %w: top_n %d, diversity %v", ErrInvalidConstraints, cfg.topN, cfg.diversity)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			ClientName: "slidegen-sdk",
		})
		if err != nil {
			return nil, fmt.Errorf("slidegen: create cache store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("slidegen: cache not ready: %w", err)
		}
		store = s
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil && store != nil {
		store.Close()
	}
	return c, err
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	embedder, model := buildEmbedder(cfg)
	if store != nil {
		embedder = embcache.New(embedder, store, embcache.Config{
			Namespace: "sdk:" + model,
			TTL:       cfg.cacheTTL,
		}, metrics.EmbeddingCacheTotal, zap.NewNop())
	}

	pcfg := pipeline.Defaults()
	if cfg.hiddenDim > 0 {
		pcfg.HiddenDim = cfg.hiddenDim
	}
	if cfg.maxInputTokens > 0 {
		pcfg.Tokenizer.MaxInputTokens = cfg.maxInputTokens
	}
	pcfg.Fusion.WeightsPath = cfg.fusionWeights

	pc, err := pipeline.New(pcfg, embedder, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("slidegen: build pipeline: %w", err)
	}

	scfg := summaryuc.DefaultConfig(summaryuc.Variant(cfg.variant))
	if cfg.keywordsSet {
		scfg.TopN = cfg.topN
		scfg.Diversity = cfg.diversity
	}
	if cfg.summaryCons != nil {
		scfg.Constraints = cfg.summaryCons.toDomain()
	}
	if err := scfg.Constraints.Validate(); err != nil {
		return nil, fmt.Errorf("slidegen: summary: %w", err)
	}

	qcfg := quizuc.DefaultConfig()
	if cfg.questionCons != nil {
		qcfg.Question = cfg.questionCons.toDomain()
	}
	if cfg.answerCons != nil {
		qcfg.Answer = cfg.answerCons.toDomain()
	}
	if err := errors.Join(qcfg.Question.Validate(), qcfg.Answer.Validate()); err != nil {
		return nil, fmt.Errorf("slidegen: quiz: %w", err)
	}

	// Pass nil interface (not typed nil pointer) when the cache is off.
	var cache healthuc.CachePinger
	if store != nil {
		cache = store
	}
	var embCheck healthuc.EmbeddingChecker
	if hc, ok := embedder.(domain.HealthChecker); ok {
		embCheck = hc
	}

	return &Client{
		store:      store,
		summarySvc: summaryuc.New(pc.Ranker(), pc, scfg, zap.NewNop()),
		quizSvc:    quizuc.New(pc, qcfg, zap.NewNop()),
		healthSvc:  healthuc.New(pc, cache, embCheck),
		obs:        obs,
	}, nil
}

func buildEmbedder(cfg *clientConfig) (domain.Embedder, string) {
	if cfg.embedder != nil {
		return adaptEmbedder(cfg.embedder), cfg.embedderModel
	}
	l := local.NewEmbedder(cfg.localDim)
	return l, fmt.Sprintf("hashing-%d", l.Dim())
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Summarize summarises one slide. img may be nil. A corrupt or empty image falls
// back to the text-only path and blank text summarises the "(no content)" sentinel.
func (c *Client) Summarize(ctx context.Context, img image.Image, text string) (_ Summary, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opSummarize, start, err) }()

	s, err := c.summarySvc.Summarize(ctx, domain.SlideInput{Image: img, Text: text})
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return summaryFromDomain(s), nil
}

// GenerateQuiz turns a summary into one multiple-choice item. Fields the models
// could not produce hold "unconfirmed" and the quiz is marked degraded.
func (c *Client) GenerateQuiz(ctx context.Context, summary string) (_ Quiz, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opGenerateQuiz, start, err) }()

	rec, err := c.quizSvc.GenerateQuiz(ctx, summary)
	if err != nil {
		return Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}
	q := quizFromDomain(rec)
	c.obs.quiz(q)
	return q, nil
}
