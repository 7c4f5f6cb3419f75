package slidegen

import (
	"context"

	"github.com/kailas-cloud/slidegen/internal/domain"
	healthuc "github.com/kailas-cloud/slidegen/internal/usecase/health"
)

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

type mockSummaryUC struct {
	fn func(ctx context.Context, in domain.SlideInput) (domain.Summary, error)
}

func (m *mockSummaryUC) Summarize(ctx context.Context, in domain.SlideInput) (domain.Summary, error) {
	return m.fn(ctx, in)
}

type mockQuizUC struct {
	fn func(ctx context.Context, summary string) (domain.QuizRecord, error)
}

func (m *mockQuizUC) GenerateQuiz(ctx context.Context, summary string) (domain.QuizRecord, error) {
	return m.fn(ctx, summary)
}

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }
