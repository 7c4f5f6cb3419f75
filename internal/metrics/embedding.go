package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keyword embedding metrics. Every keyword extraction embeds the slide text and its
// candidate phrases, so these follow slide traffic one batch per summary.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Subsystem: "embedding",
			Name:      "provider_calls_total",
			Help:      "Keyword embedding calls to the remote provider by outcome",
		},
		[]string{"provider", "model", "outcome"}, // ok / error
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slidegen",
			Subsystem: "embedding",
			Name:      "provider_call_seconds",
			Help:      "Latency of one provider call covering a slide text and its candidate phrases",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Subsystem: "embedding",
			Name:      "texts_total",
			Help:      "Slide texts and candidate phrases sent to the provider",
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Subsystem: "embedding",
			Name:      "billed_tokens_total",
			Help:      "Tokens the provider billed for keyword embeddings",
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Subsystem: "embedding",
			Name:      "provider_failures_total",
			Help:      "Provider failures that sent a summary down the no-keyword path",
		},
		[]string{"provider", "model", "reason"}, // api_error / count_mismatch
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Subsystem: "embedding",
			Name:      "cache_lookups_total",
			Help:      "Candidate vector lookups in the Redis/Valkey cache",
		},
		[]string{"result"}, // hit / miss
	)
)

var embeddingCollectors = []prometheus.Collector{
	EmbeddingRequestsTotal,
	EmbeddingRequestDuration,
	EmbeddingTextsTotal,
	EmbeddingTokensTotal,
	EmbeddingErrorsTotal,
	EmbeddingCacheTotal,
}

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the keyword embedding metrics on the default
// registry. Call it from main; repeated calls are no-ops.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(embeddingCollectors...)
	embMetricsRegistered = true
}
