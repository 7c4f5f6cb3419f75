package keyword

import (
	"math"
	"sort"

	"github.com/kailas-cloud/slidegen/internal/vecmath"
)

// MMR selects up to topN candidate indices by Maximal Marginal Relevance.
//
// The first pick is the most relevant candidate. Each following pick maximises
// (1-diversity)*rel(c) - diversity*max_{s in selected} sim(c, s).
// diversity is clamped to [0,1]; 0 ranks purely by relevance. pool > 0 restricts the
// search to the pool most relevant candidates. Ties go to the earlier candidate.
func MMR(rel []float64, vecs [][]float64, topN int, diversity float64, pool int) []int {
	if topN <= 0 || len(rel) == 0 {
		return nil
	}
	diversity = math.Max(0, math.Min(1, diversity))

	order := make([]int, len(rel))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rel[order[a]] > rel[order[b]] })
	if pool > 0 && pool < len(order) {
		order = order[:pool]
	}

	selected := []int{order[0]}
	remaining := append([]int(nil), order[1:]...)
	maxSim := make(map[int]float64, len(remaining))
	for _, c := range remaining {
		maxSim[c] = vecmath.Cosine(vecs[c], vecs[order[0]])
	}

	for len(selected) < topN && len(remaining) > 0 {
		score := func(c int) float64 { return (1-diversity)*rel[c] - diversity*maxSim[c] }
		best, bestScore := 0, score(remaining[0])
		for i := 1; i < len(remaining); i++ {
			c := remaining[i]
			if s := score(c); s > bestScore || (s == bestScore && c < remaining[best]) {
				best, bestScore = i, s
			}
		}
		pick := remaining[best]
		selected = append(selected, pick)
		remaining = append(remaining[:best], remaining[best+1:]...)
		for _, c := range remaining {
			maxSim[c] = math.Max(maxSim[c], vecmath.Cosine(vecs[c], vecs[pick]))
		}
	}
	return selected
}
