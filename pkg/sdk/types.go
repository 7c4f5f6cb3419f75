package slidegen

import "github.com/kailas-cloud/slidegen/internal/domain"

// Variant selects the summarisation prompt.
type Variant string

// Variant constants.
const (
	// VariantMultimodal conditions on keywords, text and the slide image.
	VariantMultimodal Variant = "multimodal"
	// VariantText conditions on the text alone.
	VariantText Variant = "text"
)

// Keyword is a ranked phrase taken from the slide text.
type Keyword struct {
	Phrase string
	Score  float64
}

// Summary is the result of summarising one slide.
type Summary struct {
	Text     string
	Keywords []Keyword
	// Terminated is false when generation hit the token limit.
	Terminated bool
	// Truncated is true when the prompt was cut at the input token limit.
	Truncated bool
	ImageUsed bool
}

// Choice is one labelled answer option.
type Choice struct {
	Label string
	Text  string
}

// Quiz is a structured multiple-choice item.
type Quiz struct {
	Question    string
	Choices     []Choice // A..D in order, empty if they could not be parsed
	Answer      string
	Explanation string
	Difficulty  string // 하, 중, 상
	Status      string // "complete" or "degraded"
	Unparsed    []string
}

// Degraded reports whether any field holds the "unconfirmed" sentinel.
func (q Quiz) Degraded() bool { return q.Status == string(domain.QuizDegraded) }

// Constraints configures one beam search.
type Constraints struct {
	BeamWidth         int
	MaxNewTokens      int
	MinTokens         int
	NoRepeatNgramSize int
	RepetitionPenalty float64
	LengthPenalty     float64
	EarlyStopping     bool
}

func (c Constraints) toDomain() domain.GenerationConstraints {
	return domain.GenerationConstraints{
		BeamWidth:         c.BeamWidth,
		MaxNewTokens:      c.MaxNewTokens,
		MinTokens:         c.MinTokens,
		NoRepeatNgramSize: c.NoRepeatNgramSize,
		RepetitionPenalty: c.RepetitionPenalty,
		LengthPenalty:     c.LengthPenalty,
		EarlyStopping:     c.EarlyStopping,
	}
}

func summaryFromDomain(s domain.Summary) Summary {
	out := Summary{
		Text:       s.Text,
		Keywords:   make([]Keyword, len(s.Keywords)),
		Terminated: s.Terminated,
		Truncated:  s.Truncated,
		ImageUsed:  s.ImageUsed,
	}
	for i, k := range s.Keywords {
		out.Keywords[i] = Keyword{Phrase: k.Phrase, Score: k.Score}
	}
	return out
}

func quizFromDomain(r domain.QuizRecord) Quiz {
	out := Quiz{
		Question:    r.Question,
		Choices:     make([]Choice, len(r.Options)),
		Answer:      r.Answer,
		Explanation: r.Explanation,
		Difficulty:  r.Difficulty,
		Status:      string(r.Status),
		Unparsed:    r.Unparsed,
	}
	for i, o := range r.Options {
		out.Choices[i] = Choice{Label: o.Label, Text: o.Text}
	}
	return out
}
