package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slidegen",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"}, // keywords, encode, decode_summary, decode_question, decode_answer
	)

	DecodeStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Name:      "decode_steps_total",
			Help:      "Beam-search steps run",
		},
		[]string{"stage"},
	)

	DecodeResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Name:      "decode_results_total",
			Help:      "Decoder outcomes by termination",
		},
		[]string{"stage", "outcome"}, // terminated / partial / cancelled / error
	)

	InputTruncatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Name:      "input_truncated_total",
			Help:      "Prompts cut at max_input_tokens",
		},
		[]string{"stage"},
	)

	QuizResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Name:      "quiz_results_total",
			Help:      "Quiz generations by final status",
		},
		[]string{"status"}, // complete / degraded
	)

	KeywordFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slidegen",
			Name:      "keyword_fallback_total",
			Help:      "Summaries produced without keywords after an extraction failure",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers inference pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(DecodeStepsTotal)
	prometheus.MustRegister(DecodeResultsTotal)
	prometheus.MustRegister(InputTruncatedTotal)
	prometheus.MustRegister(QuizResultsTotal)
	prometheus.MustRegister(KeywordFallbackTotal)
	pipelineMetricsRegistered = true
}
