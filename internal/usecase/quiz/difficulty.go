package quiz

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

// Bloom-level cues: recall questions are 하, evaluate/create questions are 상.
var (
	recallCues    = []string{"정의", "무엇", "의미", "용어", "옳은 것", "what is", "define"}
	synthesisCues = []string{"비교", "평가", "분석", "설계", "종합", "추론", "왜", "why", "compare", "evaluate"}
)

const (
	shortExplanation = 40
	longExplanation  = 160
)

// Difficulty tags a quiz item 하, 중 or 상 from the shape of its question and
// explanation. Anything unclassified is 중.
func Difficulty(question, explanation string) string {
	q := strings.ToLower(question)
	n := utf8.RuneCountInString(explanation)
	if explanation == domain.Unconfirmed {
		n = 0
	}
	switch {
	case containsAny(q, synthesisCues) || n > longExplanation:
		return domain.DifficultyHigh
	case containsAny(q, recallCues) && n > 0 && n <= shortExplanation:
		return domain.DifficultyLow
	default:
		return domain.DifficultyMedium
	}
}

func containsAny(s string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}
