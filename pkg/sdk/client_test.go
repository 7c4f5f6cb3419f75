package slidegen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/slidegen/internal/domain"
	healthuc "github.com/kailas-cloud/slidegen/internal/usecase/health"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"unknown variant", []Option{WithVariant("audio")}},
		{"diversity above one", []Option{WithKeywords(5, 1.5)}},
		{"negative top n", []Option{WithKeywords(-1, 0.5)}},
		{"zero beams", []Option{WithSummaryConstraints(Constraints{MaxNewTokens: 10})}},
		{"bad quiz constraints", []Option{WithQuizConstraints(
			Constraints{BeamWidth: 2, MaxNewTokens: 10, RepetitionPenalty: 1, LengthPenalty: 1},
			Constraints{BeamWidth: 2, MaxNewTokens: 10, RepetitionPenalty: 0, LengthPenalty: 1},
		)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEmbedderAdapter(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{Embedding: []float32{1, 2, 3}, TotalTokens: 10}, nil
		},
	}

	adapter := adaptEmbedder(mock)
	if _, ok := adapter.(domain.BatchEmbedder); ok {
		t.Fatal("single embedder must not advertise batching")
	}
	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 10 {
		t.Errorf("result = %+v", result)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}

	_, err := adaptEmbedder(mock).Embed(context.Background(), "hello")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedderAdapter_Batch(t *testing.T) {
	mock := &mockBatchEmbedder{
		batchFn: func(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
			out := BatchEmbeddingResult{TotalTokens: len(texts)}
			for range texts {
				out.Embeddings = append(out.Embeddings, []float32{1})
			}
			return out, nil
		},
	}

	be, ok := adaptEmbedder(mock).(domain.BatchEmbedder)
	if !ok {
		t.Fatal("expected batch support")
	}
	res, err := be.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || res.TotalTokens != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("valkey = (%v, %q)", cfg.addrs, cfg.password)
	}

	WithRedis("localhost:6380", "pass").apply(cfg)
	if cfg.addrs[0] != "localhost:6380" {
		t.Errorf("addr = %q, want localhost:6380", cfg.addrs[0])
	}

	WithKeywords(3, 0.4).apply(cfg)
	if !cfg.keywordsSet || cfg.topN != 3 || cfg.diversity != 0.4 {
		t.Errorf("keywords = (%v, %d, %v)", cfg.keywordsSet, cfg.topN, cfg.diversity)
	}

	WithVariant(VariantText).apply(cfg)
	if cfg.variant != VariantText {
		t.Errorf("variant = %q", cfg.variant)
	}

	WithCacheTTL(time.Hour).apply(cfg)
	if cfg.cacheTTL != time.Hour {
		t.Errorf("ttl = %v", cfg.cacheTTL)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{store: nil}
	c.Close()
}

func TestClient_SummarizeConverts(t *testing.T) {
	var got domain.SlideInput
	c := &Client{summarySvc: &mockSummaryUC{
		fn: func(_ context.Context, in domain.SlideInput) (domain.Summary, error) {
			got = in
			return domain.Summary{
				Text:       "프로세스 관리",
				Keywords:   domain.KeywordSet{{Phrase: "프로세스", Score: 0.9}},
				Terminated: true,
				ImageUsed:  true,
			}, nil
		},
	}}

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	s, err := c.Summarize(context.Background(), img, "운영체제")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "운영체제" || got.Image != img {
		t.Errorf("input = %+v", got)
	}
	if s.Text != "프로세스 관리" || !s.Terminated || !s.ImageUsed {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Keywords) != 1 || s.Keywords[0].Phrase != "프로세스" {
		t.Errorf("keywords = %+v", s.Keywords)
	}
}

func TestClient_SummarizeError(t *testing.T) {
	c := &Client{summarySvc: &mockSummaryUC{
		fn: func(context.Context, domain.SlideInput) (domain.Summary, error) {
			return domain.Summary{}, domain.ErrModelNotLoaded
		},
	}}

	_, err := c.Summarize(context.Background(), nil, "x")
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("err = %v, want ErrModelNotLoaded", err)
	}
}

func TestClient_GenerateQuizConverts(t *testing.T) {
	c := &Client{quizSvc: &mockQuizUC{
		fn: func(_ context.Context, summary string) (domain.QuizRecord, error) {
			return domain.QuizRecord{
				Question: "TCP는?",
				Options: domain.Options{
					{Label: "A", Text: "연결형"}, {Label: "B", Text: "비연결형"},
					{Label: "C", Text: "물리"}, {Label: "D", Text: "응용"},
				},
				Answer:      "A",
				Explanation: domain.Unconfirmed,
				Difficulty:  domain.DifficultyMedium,
				Status:      domain.QuizDegraded,
				Unparsed:    []string{"explanation"},
			}, nil
		},
	}}

	q, err := c.GenerateQuiz(context.Background(), "TCP 요약")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Degraded() {
		t.Error("expected degraded")
	}
	if len(q.Choices) != 4 || q.Choices[3].Label != "D" {
		t.Errorf("choices = %+v", q.Choices)
	}
	if q.Answer != "A" || q.Explanation != "unconfirmed" {
		t.Errorf("quiz = %+v", q)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"model_summary": healthuc.CheckOK, "cache": healthuc.CheckError},
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["cache"] != "error" || h.Checks["model_summary"] != "ok" {
		t.Errorf("health = %+v", h)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe(opSummarize, time.Now().Add(-10*time.Millisecond), nil)
	obs.observe(opSummarize, time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "slidegen_sdk_calls_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("slidegen_sdk_calls_total not found")
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second: %v", err)
	}
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx,
		WithHiddenDim(16),
		WithKeywords(3, 0.5),
		WithSummaryConstraints(Constraints{
			BeamWidth: 2, MaxNewTokens: 24, NoRepeatNgramSize: 2,
			RepetitionPenalty: 1.2, LengthPenalty: 1, EarlyStopping: true,
		}),
		WithQuizConstraints(
			Constraints{BeamWidth: 2, MaxNewTokens: 16, RepetitionPenalty: 1.5, LengthPenalty: 1, EarlyStopping: true},
			Constraints{BeamWidth: 2, MaxNewTokens: 12, RepetitionPenalty: 1.5, LengthPenalty: 1, EarlyStopping: true},
		),
		WithLogger(slog.Default()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		img.Set(x, 12, color.RGBA{R: 200, A: 255})
	}

	s, err := c.Summarize(ctx, img, "운영체제는 프로세스를 관리한다. 프로세스 스케줄링은 CPU를 배분한다.")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !s.ImageUsed {
		t.Error("expected image to be used")
	}
	if len(s.Keywords) == 0 {
		t.Fatal("expected keywords")
	}
	if !strings.HasPrefix(s.Text, s.Keywords[0].Phrase) {
		t.Errorf("summary %q does not open with %q", s.Text, s.Keywords[0].Phrase)
	}

	q, err := c.GenerateQuiz(ctx, s.Text)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if q.Status != "complete" && q.Status != "degraded" {
		t.Errorf("status = %q", q.Status)
	}
	if q.Question == "" || q.Answer == "" || q.Explanation == "" || q.Difficulty == "" {
		t.Errorf("quiz has empty fields: %+v", q)
	}

	if h := c.Health(ctx); h.Status != "ok" {
		t.Errorf("health = %+v", h)
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.New("boom"), "error"},
		{fmt.Errorf("summarize: %w", context.Canceled), "cancelled"},
		{context.DeadlineExceeded, "cancelled"},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_CountsDegradedQuizzes(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	c := &Client{obs: obs, quizSvc: &mockQuizUC{
		fn: func(context.Context, string) (domain.QuizRecord, error) {
			return domain.QuizRecord{Status: domain.QuizDegraded, Unparsed: []string{"answer"}}, nil
		},
	}}
	for range 2 {
		if _, err := c.GenerateQuiz(context.Background(), "요약"); err != nil {
			t.Fatalf("GenerateQuiz: %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "slidegen_sdk_quiz_degraded_total" {
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Errorf("degraded = %v, want 2", got)
			}
			return
		}
	}
	t.Error("slidegen_sdk_quiz_degraded_total not found")
}
