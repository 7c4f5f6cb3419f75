package slidegen

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	// Embedding cache, off unless WithValkey or WithRedis is given.
	addrs    []string
	password string
	cacheTTL time.Duration

	embedder      Embedder
	embedderModel string
	localDim      int

	variant      Variant
	topN         int
	diversity    float64
	keywordsSet  bool
	summaryCons  *Constraints
	questionCons *Constraints
	answerCons   *Constraints

	hiddenDim      int
	maxInputTokens int
	fusionWeights  string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey caches keyword embeddings in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis caches keyword embeddings in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCacheTTL sets the embedding cache TTL. Zero keeps entries forever.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithEmbedder sets the text embedding provider used for keyword ranking.
// model names the cache namespace, so switching models never reads stale vectors.
// Defaults to a local hashing embedder.
func WithEmbedder(e Embedder, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.embedderModel = model
	})
}

// WithLocalEmbedderDimensions sets the width of the default hashing embedder.
func WithLocalEmbedderDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.localDim = dim
	})
}

// WithVariant selects the summarisation prompt. Default: VariantMultimodal.
func WithVariant(v Variant) Option {
	return optionFunc(func(c *clientConfig) {
		c.variant = v
	})
}

// WithKeywords sets how many keywords are extracted and the MMR diversity in [0, 1].
// Defaults: 5 and 0.7.
func WithKeywords(topN int, diversity float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.topN = topN
		c.diversity = diversity
		c.keywordsSet = true
	})
}

// WithSummaryConstraints overrides the beam search of the summary stage.
func WithSummaryConstraints(cons Constraints) Option {
	return optionFunc(func(c *clientConfig) {
		c.summaryCons = &cons
	})
}

// WithQuizConstraints overrides the beam search of both quiz stages.
func WithQuizConstraints(question, answer Constraints) Option {
	return optionFunc(func(c *clientConfig) {
		c.questionCons = &question
		c.answerCons = &answer
	})
}

// WithHiddenDim sets the shared hidden width of every model. Default: 64.
func WithHiddenDim(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hiddenDim = dim
	})
}

// WithMaxInputTokens sets the prompt truncation limit. Default: 512.
func WithMaxInputTokens(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxInputTokens = n
	})
}

// WithFusionWeights loads fusion encoder weights from a JSON file.
func WithFusionWeights(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.fusionWeights = path
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
