package quiz

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
)

var (
	optionRe      = regexp.MustCompile(`(?:^|\s)([A-D])[.)．:：]\s*`)
	questionLabel = regexp.MustCompile(`(?i)^\s*(?:문제|question)\s*[:：.]?\s*`)
	answerRe      = regexp.MustCompile(`(?i)(?:정답|answer)\s*[:：]?\s*(.+?)\s*(?:해설|explanation|\n|$)`)
	explanationRe = regexp.MustCompile(`(?is)(?:해설|explanation)\s*[:：]?\s*(.+)`)
	leadingLabel  = regexp.MustCompile(`^([A-D])(?:[.)．:：]|\s|$)`)
)

// CleanStepOne flattens the question-stage output into one line: artifacts removed,
// newlines turned into spaces, repeated whitespace collapsed.
func CleanStepOne(raw string) string {
	return tokenizer.Clean(raw)
}

// ParseQuestion splits a cleaned question block into the stem and its four options.
// The stem is everything before the first "A." marker with any leading question label
// removed. Options parse only when exactly A, B, C and D follow in order.
func ParseQuestion(block string) domain.QuizDraft {
	draft := domain.QuizDraft{RawBlock: block}
	marks := optionRe.FindAllStringSubmatchIndex(block, -1)

	first := -1
	for i, m := range marks {
		if block[m[2]:m[3]] == "A" {
			first = i
			break
		}
	}

	stem := block
	if first >= 0 {
		stem = block[:marks[first][0]]
	}
	stem = strings.TrimSpace(questionLabel.ReplaceAllString(stem, ""))
	if stem == "" {
		draft.Question = domain.Unparsed[string](block)
	} else {
		draft.Question = domain.Parsed(stem, block)
	}

	if first < 0 {
		draft.Options = domain.Unparsed[domain.Options](block)
		return draft
	}
	draft.Options = parseOptions(block, marks[first:])
	return draft
}

func parseOptions(block string, marks [][]int) domain.Extraction[domain.Options] {
	raw := block[marks[0][0]:]
	if len(marks) != len(domain.OptionLabels) {
		return domain.Unparsed[domain.Options](raw)
	}
	opts := make(domain.Options, 0, len(marks))
	for i, m := range marks {
		end := len(block)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		body := strings.TrimSpace(block[m[1]:end])
		body = strings.TrimSpace(strings.TrimRight(body, ",，"))
		if body == "" {
			return domain.Unparsed[domain.Options](raw)
		}
		opts = append(opts, domain.Option{Label: block[m[2]:m[3]], Text: body})
	}
	if !opts.Complete() {
		return domain.Unparsed[domain.Options](raw)
	}
	return domain.Parsed(opts, raw)
}

// Answer is the parsed answer-stage output.
type Answer struct {
	Answer      domain.Extraction[string]
	Explanation domain.Extraction[string]
}

// ParseAnswer extracts the answer and explanation from the answer-stage output.
// An answer that starts with an option label is reduced to that label.
func ParseAnswer(raw string) Answer {
	var out Answer
	if m := answerRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		ans := strings.TrimSpace(m[1])
		if l := leadingLabel.FindStringSubmatch(ans); l != nil {
			ans = l[1]
		}
		out.Answer = domain.Parsed(ans, raw)
	} else {
		out.Answer = domain.Unparsed[string](raw)
	}
	if m := explanationRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		out.Explanation = domain.Parsed(strings.TrimSpace(m[1]), raw)
	} else {
		out.Explanation = domain.Unparsed[string](raw)
	}
	return out
}
