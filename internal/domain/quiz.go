package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OptionLabels are the labels a multiple-choice item must carry, in order.
var OptionLabels = []string{"A", "B", "C", "D"}

// Option is one labelled answer choice.
type Option struct {
	Label string
	Text  string
}

// Options is an ordered label -> text mapping.
type Options []Option

// Get returns the text for label.
func (o Options) Get(label string) (string, bool) {
	for _, opt := range o {
		if opt.Label == label {
			return opt.Text, true
		}
	}
	return "", false
}

// Len returns the number of options.
func (o Options) Len() int { return len(o) }

// Labels returns the labels in order.
func (o Options) Labels() []string {
	out := make([]string, len(o))
	for i, opt := range o {
		out[i] = opt.Label
	}
	return out
}

// Complete reports whether the options carry exactly the OptionLabels in order.
func (o Options) Complete() bool {
	if len(o) != len(OptionLabels) {
		return false
	}
	for i, opt := range o {
		if opt.Label != OptionLabels[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the options as an object whose keys keep label order.
func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(opt.Label)
		if err != nil {
			return nil, fmt.Errorf("marshal option label: %w", err)
		}
		v, err := json.Marshal(opt.Text)
		if err != nil {
			return nil, fmt.Errorf("marshal option text: %w", err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// QuizDraft is the parsed first-stage output: question and options.
type QuizDraft struct {
	Question Extraction[string]
	Options  Extraction[Options]
	// RawBlock is the cleaned stage-one text, fed verbatim to the answer stage.
	RawBlock string
}

// QuizStatus is the terminal state of a quiz generation.
type QuizStatus string

const (
	// QuizComplete means every field was extracted from generated text.
	QuizComplete QuizStatus = "complete"
	// QuizDegraded means at least one field holds a sentinel value.
	QuizDegraded QuizStatus = "degraded"
)

// Difficulty levels, following the lecture-quiz convention of low/middle/high.
const (
	DifficultyLow    = "하"
	DifficultyMedium = "중"
	DifficultyHigh   = "상"
)

// QuizRecord is the structured multiple-choice item handed to the caller.
type QuizRecord struct {
	Question    string     `json:"question"`
	Options     Options    `json:"options"`
	Answer      string     `json:"answer"`
	Explanation string     `json:"explanation"`
	Difficulty  string     `json:"difficulty"`
	Status      QuizStatus `json:"status"`
	// Unparsed names the fields that hold a sentinel instead of generated content.
	Unparsed    []string `json:"unparsed,omitempty"`
	RawQuestion string   `json:"raw_question,omitempty"`
	RawAnswer   string   `json:"raw_answer,omitempty"`
}

// Degraded reports whether any field fell back to a sentinel.
func (r QuizRecord) Degraded() bool {
	return r.Status == QuizDegraded
}
