// Package fusion merges token embeddings with image region embeddings through a
// stack of residual cross-attention layers. Text queries attend over image keys and
// values, so the output keeps the token sequence's length and order.
package fusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/vecmath"
)

const layerNormEps = 1e-5

// Config selects the architecture and where its weights come from.
type Config struct {
	Dim         int
	Heads       int
	Layers      int
	Seed        uint64
	WeightsPath string // empty: seeded init
}

// Encoder is read-only after construction and safe for concurrent use.
type Encoder struct {
	w *Weights
}

// New loads weights from cfg.WeightsPath or initialises them from cfg.Seed.
// Loaded weights must match cfg.Dim, and cfg.Heads and cfg.Layers when set.
func New(cfg Config) (*Encoder, error) {
	if cfg.WeightsPath == "" {
		w, err := RandomWeights(cfg.Dim, cfg.Heads, cfg.Layers, cfg.Seed)
		if err != nil {
			return nil, err
		}
		return &Encoder{w: w}, nil
	}

	w, err := LoadWeights(cfg.WeightsPath)
	if err != nil {
		return nil, err
	}
	switch {
	case w.Dim != cfg.Dim:
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidWeights, domain.NewShapeError("dim", w.Dim, cfg.Dim))
	case cfg.Heads > 0 && w.Heads != cfg.Heads:
		return nil, fmt.Errorf("%w: heads %d, configured %d", domain.ErrInvalidWeights, w.Heads, cfg.Heads)
	case cfg.Layers > 0 && len(w.Layers) != cfg.Layers:
		return nil, fmt.Errorf("%w: layers %d, configured %d", domain.ErrInvalidWeights, len(w.Layers), cfg.Layers)
	}
	return &Encoder{w: w}, nil
}

// NewWithWeights wraps an already validated parameter set.
func NewWithWeights(w *Weights) (*Encoder, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{w: w}, nil
}

// Dim returns the hidden width.
func (e *Encoder) Dim() int { return e.w.Dim }

// Encode returns the fused n x d representation of tokens (n x d) conditioned on image
// (m x d). A nil or empty image returns tokens itself. Inputs are never modified.
func (e *Encoder) Encode(tokens, image *mat.Dense) (*mat.Dense, error) {
	out, _, err := e.run(tokens, image, false)
	return out, err
}

// Attention returns the attention weights of every layer and head, indexed
// [layer][head], each n x m with rows summing to 1.
func (e *Encoder) Attention(tokens, image *mat.Dense) ([][]*mat.Dense, error) {
	_, att, err := e.run(tokens, image, true)
	return att, err
}

func (e *Encoder) run(tokens, image *mat.Dense, keep bool) (*mat.Dense, [][]*mat.Dense, error) {
	if tokens == nil || tokens.IsEmpty() {
		return nil, nil, fmt.Errorf("fusion: %w", domain.ErrEmptyInput)
	}
	if _, c := tokens.Dims(); c != e.w.Dim {
		return nil, nil, fmt.Errorf("fusion tokens: %w", domain.NewShapeError("hidden dim", c, e.w.Dim))
	}
	if image == nil || image.IsEmpty() {
		return tokens, nil, nil
	}
	if _, c := image.Dims(); c != e.w.Dim {
		return nil, nil, fmt.Errorf("fusion image: %w", domain.NewShapeError("hidden dim", c, e.w.Dim))
	}

	var all [][]*mat.Dense
	x := mat.DenseCopyOf(tokens)
	for i := range e.w.Layers {
		l := &e.w.Layers[i]
		attended, att := e.crossAttend(l, x, image, keep)
		attended.Add(attended, x)
		layerNorm(attended, l.Gamma, l.Beta)
		x = attended
		if keep {
			all = append(all, att)
		}
	}
	return x, all, nil
}

// crossAttend computes MHA(q=x, k=img, v=img).
func (e *Encoder) crossAttend(l *Layer, x, img *mat.Dense, keep bool) (*mat.Dense, []*mat.Dense) {
	n, d := x.Dims()
	m, _ := img.Dims()
	dh := d / e.w.Heads
	scale := 1 / math.Sqrt(float64(dh))

	q := project(x, l.Wq, l.Bq)
	k := project(img, l.Wk, l.Bk)
	v := project(img, l.Wv, l.Bv)

	ctx := mat.NewDense(n, d, nil)
	var heads []*mat.Dense
	for h := range e.w.Heads {
		lo, hi := h*dh, (h+1)*dh
		qh := q.Slice(0, n, lo, hi)
		kh := k.Slice(0, m, lo, hi)
		vh := v.Slice(0, m, lo, hi)

		scores := mat.NewDense(n, m, nil)
		scores.Mul(qh, kh.T())
		scores.Scale(scale, scores)
		for i := range n {
			vecmath.SoftmaxInPlace(scores.RawRowView(i))
		}

		ctx.Slice(0, n, lo, hi).(*mat.Dense).Mul(scores, vh)
		if keep {
			heads = append(heads, scores)
		}
	}
	return project(ctx, l.Wo, l.Bo), heads
}

func project(x, w *mat.Dense, b []float64) *mat.Dense {
	n, _ := x.Dims()
	_, d := w.Dims()
	out := mat.NewDense(n, d, nil)
	out.Mul(x, w)
	for i := range n {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += b[j]
		}
	}
	return out
}

// layerNorm normalises every row of x in place.
func layerNorm(x *mat.Dense, gamma, beta []float64) {
	n, d := x.Dims()
	for i := range n {
		row := x.RawRowView(i)
		var mean, variance float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(d)
		for _, v := range row {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(d)
		inv := 1 / math.Sqrt(variance+layerNormEps)
		for j := range row {
			row[j] = (row[j]-mean)*inv*gamma[j] + beta[j]
		}
	}
}
