package decoder

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

const (
	testVocab = 8
	testEOS   = 1
)

// funcModel scores prefixes with a plain function.
type funcModel struct {
	logits   func(prefix []int) []float64
	startErr error
	calls    int
	onCall   func(n int)
}

func (m *funcModel) Start(context.Context, *Input) (Session, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m, nil
}

func (m *funcModel) Logits(prefix []int) ([]float64, error) {
	m.calls++
	if m.onCall != nil {
		m.onCall(m.calls)
	}
	return m.logits(prefix), nil
}

// favourite always prefers id; every other id scores 0.
func favourite(id int, score float64) func([]int) []float64 {
	return func([]int) []float64 {
		l := make([]float64, testVocab)
		l[id] = score
		return l
	}
}

// noisy returns pseudo-random logits derived from the prefix.
func noisy(seed uint64) func([]int) []float64 {
	return func(prefix []int) []float64 {
		h := fnv.New64a()
		for _, id := range prefix {
			_, _ = h.Write([]byte{byte(id)})
		}
		rng := rand.New(rand.NewPCG(h.Sum64(), seed))
		l := make([]float64, testVocab)
		for i := range l {
			l[i] = rng.NormFloat64() * 3
		}
		return l
	}
}

// withoutEOS wraps f so the end token is never produced.
func withoutEOS(f func([]int) []float64) func([]int) []float64 {
	return func(prefix []int) []float64 {
		l := f(prefix)
		l[testEOS] = math.Inf(-1)
		return l
	}
}

func testInput() *Input {
	return &Input{Vocab: testVocab}
}
