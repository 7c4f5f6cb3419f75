package chi

import (
	"context"

	"github.com/kailas-cloud/slidegen/internal/domain"
	healthuc "github.com/kailas-cloud/slidegen/internal/usecase/health"
)

// --- mock services ---

type mockSummarizer struct {
	out   domain.Summary
	err   error
	got   domain.SlideInput
	block chan struct{}
	ready chan struct{}
}

func (m *mockSummarizer) Summarize(ctx context.Context, in domain.SlideInput) (domain.Summary, error) {
	m.got = in
	domain.UsageFromContext(ctx).AddGeneration(7, 9)
	if m.block != nil {
		m.ready <- struct{}{}
		<-m.block
	}
	return m.out, m.err
}

type mockQuizzes struct {
	rec domain.QuizRecord
	err error
	got string
}

func (m *mockQuizzes) GenerateQuiz(_ context.Context, summary string) (domain.QuizRecord, error) {
	m.got = summary
	return m.rec, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }
