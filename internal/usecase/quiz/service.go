// Package quiz turns a slide summary into a multiple-choice item in two passes:
// a question-and-options pass and an answer-and-explanation pass.
package quiz

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/lm"
	"github.com/kailas-cloud/slidegen/internal/logger"
	"github.com/kailas-cloud/slidegen/internal/metrics"
	"github.com/kailas-cloud/slidegen/internal/text"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
)

// Default stage instructions.
const (
	DefaultQuestionInstruction = "다음 내용을 바탕으로 객관식 문제와 보기 A~D를 생성하세요. " +
		"보기 순서는 A~D이고 보기 문장은 간결하게 작성하세요."
	DefaultAnswerInstruction = "다음 문제에 대해 정답과 해설을 생성하세요. " +
		"정답은 보기 중 하나를 정확히 선택하고 해설은 구체적으로 작성하세요."
)

// Field names reported in QuizRecord.Unparsed.
const (
	FieldQuestion    = "question"
	FieldOptions     = "options"
	FieldAnswer      = "answer"
	FieldExplanation = "explanation"
)

// Config is the per-deployment quiz policy.
type Config struct {
	QuestionInstruction string
	AnswerInstruction   string
	Question            domain.GenerationConstraints
	Answer              domain.GenerationConstraints
}

// DefaultConfig returns the reference quiz policy.
func DefaultConfig() Config {
	stage := domain.GenerationConstraints{
		BeamWidth:         4,
		NoRepeatNgramSize: 3,
		RepetitionPenalty: 1.5,
		LengthPenalty:     1,
		EarlyStopping:     true,
	}
	q, a := stage, stage
	q.MaxNewTokens = 384
	a.MaxNewTokens = 256
	return Config{
		QuestionInstruction: DefaultQuestionInstruction,
		AnswerInstruction:   DefaultAnswerInstruction,
		Question:            q,
		Answer:              a,
	}
}

// Service generates quiz items. Safe for concurrent use.
type Service struct {
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

// New creates a quiz service.
func New(gen Generator, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gen: gen, cfg: cfg, logger: log}
}

// QuestionPrompt renders the first-stage prompt.
func QuestionPrompt(instruction, summary string) string {
	return instruction + "\n" + tokenizer.MarkerSummary + " " + summary + "\n" + tokenizer.MarkerQuestion
}

// AnswerPrompt renders the second-stage prompt around the cleaned question block.
func AnswerPrompt(instruction, block string) string {
	return instruction + "\n" + tokenizer.MarkerQuestion + " " + block + "\n" + tokenizer.MarkerAnswer
}

// GenerateQuiz produces one multiple-choice item from a summary. Fields that cannot be
// extracted carry "unconfirmed" and the record is Degraded; that is never an error.
// Errors are returned only for cancellation and invalid constraints.
func (s *Service) GenerateQuiz(ctx context.Context, summary string) (domain.QuizRecord, error) {
	log := logger.FromContextOr(ctx, s.logger)
	m := newMachine()

	body := text.Normalize(summary)
	if body == "" {
		log.Debug("empty summary, using sentinel")
		body = domain.NoContent
	}

	rawQuestion, err := s.run(ctx, lm.StageQuestion, QuestionPrompt(s.cfg.QuestionInstruction, body), s.cfg.Question)
	if err != nil {
		return domain.QuizRecord{}, err
	}
	s.must(m, StateQuestionGenerated)

	block := CleanStepOne(rawQuestion)
	draft := ParseQuestion(block)
	s.must(m, StateQuestionParsed)

	rec := domain.QuizRecord{
		Question:    draft.Question.Or(domain.Unconfirmed),
		Options:     draft.Options.Or(domain.Options{}),
		Answer:      domain.Unconfirmed,
		Explanation: domain.Unconfirmed,
		RawQuestion: block,
	}
	if !draft.Question.OK() {
		rec.Unparsed = []string{FieldQuestion, FieldOptions, FieldAnswer, FieldExplanation}
		s.must(m, StateDegraded)
		return s.finish(log, m, rec), nil
	}
	if !draft.Options.OK() {
		rec.Unparsed = append(rec.Unparsed, FieldOptions)
	}

	rawAnswer, err := s.run(ctx, lm.StageAnswer, AnswerPrompt(s.cfg.AnswerInstruction, block), s.cfg.Answer)
	if err != nil {
		return domain.QuizRecord{}, err
	}
	s.must(m, StateAnswerGenerated)
	rec.RawAnswer = rawAnswer

	ans := ParseAnswer(rawAnswer)
	s.must(m, StateAnswerParsed)
	rec.Answer = ans.Answer.Or(domain.Unconfirmed)
	rec.Explanation = ans.Explanation.Or(domain.Unconfirmed)
	if !ans.Answer.OK() {
		rec.Unparsed = append(rec.Unparsed, FieldAnswer)
	}
	if !ans.Explanation.OK() {
		rec.Unparsed = append(rec.Unparsed, FieldExplanation)
	}

	if len(rec.Unparsed) > 0 {
		s.must(m, StateDegraded)
	} else {
		s.must(m, StateComplete)
	}
	return s.finish(log, m, rec), nil
}

func (s *Service) run(ctx context.Context, stage, prompt string, c domain.GenerationConstraints) (string, error) {
	p, err := s.gen.Prepare(prompt, nil)
	if err != nil {
		return "", fmt.Errorf("prepare %s prompt: %w", stage, err)
	}
	if p.Truncated {
		metrics.InputTruncatedTotal.WithLabelValues(stage).Inc()
		logger.FromContextOr(ctx, s.logger).Warn("prompt truncated at max input tokens", zap.String("stage", stage))
	}
	gen, err := s.gen.Generate(ctx, stage, p, c)
	if err != nil {
		return "", fmt.Errorf("quiz: %w", err)
	}
	return gen.Text, nil
}

// must advances the machine. The call sites follow the transition table, so a
// failure here is a bug.
func (s *Service) must(m *machine, next State) {
	if err := m.to(next); err != nil {
		panic(err)
	}
}

func (s *Service) finish(log *zap.Logger, m *machine, rec domain.QuizRecord) domain.QuizRecord {
	rec.Status = domain.QuizComplete
	if m.state == StateDegraded {
		rec.Status = domain.QuizDegraded
	}
	rec.Difficulty = Difficulty(rec.Question, rec.Explanation)
	metrics.QuizResultsTotal.WithLabelValues(string(rec.Status)).Inc()
	log.Debug("quiz generated",
		zap.String("status", string(rec.Status)),
		zap.Strings("unparsed", rec.Unparsed),
		zap.Any("path", m.path),
	)
	return rec
}
