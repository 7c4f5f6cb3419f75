package decoder

import (
	"math"
	"slices"
)

// applyRepetitionPenalty divides positive and multiplies negative logits of every id
// in history by penalty.
func applyRepetitionPenalty(logits []float64, history []int, penalty float64) {
	if penalty == 1 || len(history) == 0 {
		return
	}
	seen := make(map[int]struct{}, len(history))
	for _, id := range history {
		if _, ok := seen[id]; ok || id < 0 || id >= len(logits) {
			continue
		}
		seen[id] = struct{}{}
		if logits[id] > 0 {
			logits[id] /= penalty
		} else {
			logits[id] *= penalty
		}
	}
}

// banRepeatedNgrams sets to -Inf every id that would complete an n-gram of size n
// already present in history.
func banRepeatedNgrams(scores []float64, history []int, n int) {
	if n <= 0 || len(history)+1 < n {
		return
	}
	prefix := history[len(history)-(n-1):]
	for i := 0; i+n <= len(history); i++ {
		if slices.Equal(history[i:i+n-1], prefix) {
			if id := history[i+n-1]; id >= 0 && id < len(scores) {
				scores[id] = math.Inf(-1)
			}
		}
	}
}

type scored struct {
	id    int
	score float64
}

// topK returns the k highest finite scores, best first. Ties keep the lower id.
func topK(scores []float64, k int) []scored {
	out := make([]scored, 0, k+1)
	for id, s := range scores {
		if math.IsInf(s, -1) || math.IsNaN(s) {
			continue
		}
		if len(out) == k && s <= out[k-1].score {
			continue
		}
		pos := len(out)
		for pos > 0 && out[pos-1].score < s {
			pos--
		}
		out = slices.Insert(out, pos, scored{id: id, score: s})
		if len(out) > k {
			out = out[:k]
		}
	}
	return out
}
