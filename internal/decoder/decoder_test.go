package decoder

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

func constraints() domain.GenerationConstraints {
	return domain.GenerationConstraints{
		BeamWidth:         3,
		MaxNewTokens:      12,
		RepetitionPenalty: 1,
		LengthPenalty:     1,
		EarlyStopping:     true,
	}
}

func hasRepeatedNgram(tokens []int, n int) bool {
	seen := map[string]bool{}
	for i := 0; i+n <= len(tokens); i++ {
		key := string(rune(0))
		for _, t := range tokens[i : i+n] {
			key += string(rune(t + 1))
		}
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}

func TestGenerate_NoRepeatNgram(t *testing.T) {
	d := New(testEOS, nil)
	for _, g := range []int{1, 2, 3} {
		for seed := range uint64(20) {
			c := constraints()
			c.NoRepeatNgramSize = g
			model := &funcModel{logits: withoutEOS(noisy(seed))}
			res, err := d.Generate(context.Background(), model, testInput(), c)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if hasRepeatedNgram(res.Tokens, g) {
				t.Errorf("g=%d seed=%d: repeated n-gram in %v", g, seed, res.Tokens)
			}
		}
	}
}

func TestGenerate_NoRepeatAgainstGreedyLoop(t *testing.T) {
	c := constraints()
	c.NoRepeatNgramSize = 1
	c.MaxNewTokens = 10
	res, err := New(testEOS, nil).Generate(context.Background(),
		&funcModel{logits: withoutEOS(favourite(5, 10))}, testInput(), c)
	if err != nil {
		t.Fatal(err)
	}
	// With unigrams banned, the model runs out of ids: 7 non-EOS ids in the vocab.
	if len(res.Tokens) != testVocab-1 || res.Terminated {
		t.Errorf("tokens = %v terminated = %v", res.Tokens, res.Terminated)
	}
	if res.Tokens[0] != 5 {
		t.Errorf("first token = %d, want the favourite 5", res.Tokens[0])
	}
}

func TestGenerate_ForcedStart(t *testing.T) {
	d := New(testEOS, nil)
	for seed := range uint64(10) {
		for _, forced := range [][]int{{3}, {6, 2}, {4, 4}} {
			c := constraints().WithForcedStart(forced)
			c.NoRepeatNgramSize = 2
			res, err := d.Generate(context.Background(), &funcModel{logits: noisy(seed)}, testInput(), c)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if len(res.Tokens) < len(forced) || !slices.Equal(res.Tokens[:len(forced)], forced) {
				t.Errorf("seed %d: tokens %v do not start with %v", seed, res.Tokens, forced)
			}
		}
	}
}

func TestGenerate_ForcedTokensSkipModel(t *testing.T) {
	shortest := math.MaxInt
	eos := favourite(testEOS, 10)
	model := &funcModel{logits: func(prefix []int) []float64 {
		shortest = min(shortest, len(prefix))
		return eos(prefix)
	}}
	c := constraints().WithForcedStart([]int{2, 3, 4})
	res, err := New(testEOS, nil).Generate(context.Background(), model, testInput(), c)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(res.Tokens, []int{2, 3, 4}) || !res.Terminated {
		t.Errorf("result = %+v", res)
	}
	if shortest != 3 {
		t.Errorf("model scored a prefix of length %d inside the forced span", shortest)
	}
	if res.Score > 0 {
		t.Errorf("score = %v", res.Score)
	}
}

func TestGenerate_PartialWhenNoEOS(t *testing.T) {
	c := constraints()
	c.MaxNewTokens = 6
	res, err := New(testEOS, nil).Generate(context.Background(),
		&funcModel{logits: withoutEOS(noisy(1))}, testInput(), c)
	if err != nil {
		t.Fatalf("partial output must not error: %v", err)
	}
	if res.Terminated {
		t.Error("Terminated = true without an end token")
	}
	if len(res.Tokens) != 6 {
		t.Errorf("len = %d, want max_new_tokens", len(res.Tokens))
	}
}

func TestGenerate_MinTokens(t *testing.T) {
	c := constraints()
	c.MinTokens = 4
	res, err := New(testEOS, nil).Generate(context.Background(),
		&funcModel{logits: favourite(testEOS, 10)}, testInput(), c)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Terminated || len(res.Tokens) != 4 {
		t.Errorf("result = %+v, want 4 tokens then end", res)
	}
}

func TestGenerate_ImmediateEOS(t *testing.T) {
	res, err := New(testEOS, nil).Generate(context.Background(),
		&funcModel{logits: favourite(testEOS, 10)}, testInput(), constraints())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Terminated || len(res.Tokens) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestGenerate_RepetitionPenalty(t *testing.T) {
	// 5 is only slightly preferred over 6; a strong penalty flips the second pick.
	logits := func([]int) []float64 {
		l := make([]float64, testVocab)
		l[testEOS] = math.Inf(-1)
		l[5], l[6] = 2, 1.5
		return l
	}
	c := constraints()
	c.BeamWidth = 1
	c.MaxNewTokens = 2

	res, _ := New(testEOS, nil).Generate(context.Background(), &funcModel{logits: logits}, testInput(), c)
	if !slices.Equal(res.Tokens, []int{5, 5}) {
		t.Errorf("no penalty: %v", res.Tokens)
	}
	c.RepetitionPenalty = 2
	res, _ = New(testEOS, nil).Generate(context.Background(), &funcModel{logits: logits}, testInput(), c)
	if !slices.Equal(res.Tokens, []int{5, 6}) {
		t.Errorf("penalty 2: %v", res.Tokens)
	}
}

func TestGenerate_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	model := &funcModel{logits: withoutEOS(noisy(3))}
	model.onCall = func(n int) {
		if n == 7 {
			cancel()
		}
	}
	c := constraints()
	c.MaxNewTokens = 100
	res, err := New(testEOS, nil).Generate(ctx, model, testInput(), c)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Tokens) == 0 || len(res.Tokens) >= 100 {
		t.Errorf("partial tokens = %v", res.Tokens)
	}
}

func TestGenerate_Errors(t *testing.T) {
	d := New(testEOS, nil)
	ctx := context.Background()

	bad := constraints()
	bad.BeamWidth = 0
	if _, err := d.Generate(ctx, &funcModel{logits: noisy(1)}, testInput(), bad); !errors.Is(err, domain.ErrInvalidConstraints) {
		t.Errorf("invalid constraints: err = %v", err)
	}
	if _, err := d.Generate(ctx, nil, testInput(), constraints()); !errors.Is(err, domain.ErrModelNotLoaded) {
		t.Errorf("nil model: err = %v", err)
	}
	short := &funcModel{logits: func([]int) []float64 { return make([]float64, 3) }}
	if _, err := d.Generate(ctx, short, testInput(), constraints()); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Errorf("short logits: err = %v", err)
	}
	boom := errors.New("boom")
	if _, err := d.Generate(ctx, &funcModel{startErr: boom}, testInput(), constraints()); !errors.Is(err, boom) {
		t.Errorf("start error: err = %v", err)
	}
}

func TestGenerate_EarlyStoppingOff(t *testing.T) {
	c := constraints()
	c.EarlyStopping = false
	res, err := New(testEOS, nil).Generate(context.Background(), &funcModel{logits: noisy(9)}, testInput(), c)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tokens) > c.MaxNewTokens {
		t.Errorf("len = %d", len(res.Tokens))
	}
}

func TestGenerate_ConstraintsNotMutated(t *testing.T) {
	c := constraints().WithForcedStart([]int{2})
	before := slices.Clone(c.ForcedStartTokens)
	_, _ = New(testEOS, nil).Generate(context.Background(), &funcModel{logits: noisy(2)}, testInput(), c)
	if !slices.Equal(c.ForcedStartTokens, before) {
		t.Errorf("forced tokens mutated: %v", c.ForcedStartTokens)
	}
}
