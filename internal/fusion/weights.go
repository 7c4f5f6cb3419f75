package fusion

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

// Layer holds one cross-attention block. Projections are d x d and applied as x*W + b.
type Layer struct {
	Wq, Wk, Wv, Wo *mat.Dense
	Bq, Bk, Bv, Bo []float64
	Gamma, Beta    []float64
}

// layerJSON is the on-disk layout of a layer: row-major matrices.
type layerJSON struct {
	Wq    [][]float64 `json:"wq"`
	Wk    [][]float64 `json:"wk"`
	Wv    [][]float64 `json:"wv"`
	Wo    [][]float64 `json:"wo"`
	Bq    []float64   `json:"bq"`
	Bk    []float64   `json:"bk"`
	Bv    []float64   `json:"bv"`
	Bo    []float64   `json:"bo"`
	Gamma []float64   `json:"gamma"`
	Beta  []float64   `json:"beta"`
}

type weightsJSON struct {
	Dim    int         `json:"dim"`
	Heads  int         `json:"heads"`
	Layers []layerJSON `json:"layers"`
}

// Weights is a complete parameter set for the encoder.
type Weights struct {
	Dim    int
	Heads  int
	Layers []Layer
}

// LoadWeights reads weights from a JSON file.
func LoadWeights(path string) (*Weights, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("open fusion weights: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeWeights(f)
}

// DecodeWeights parses weights and checks every tensor's shape.
func DecodeWeights(r io.Reader) (*Weights, error) {
	var raw weightsJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidWeights, err)
	}
	if raw.Dim <= 0 || len(raw.Layers) == 0 {
		return nil, fmt.Errorf("%w: dim %d, %d layers", domain.ErrInvalidWeights, raw.Dim, len(raw.Layers))
	}

	w := &Weights{Dim: raw.Dim, Heads: raw.Heads, Layers: make([]Layer, len(raw.Layers))}
	for i, l := range raw.Layers {
		var err error
		layer := Layer{Bq: l.Bq, Bk: l.Bk, Bv: l.Bv, Bo: l.Bo, Gamma: l.Gamma, Beta: l.Beta}
		for _, m := range []struct {
			name string
			src  [][]float64
			dst  **mat.Dense
		}{
			{"wq", l.Wq, &layer.Wq}, {"wk", l.Wk, &layer.Wk},
			{"wv", l.Wv, &layer.Wv}, {"wo", l.Wo, &layer.Wo},
		} {
			if *m.dst, err = square(m.src, raw.Dim); err != nil {
				return nil, fmt.Errorf("%w: layer %d %s: %w", domain.ErrInvalidWeights, i, m.name, err)
			}
		}
		w.Layers[i] = layer
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func square(rows [][]float64, d int) (*mat.Dense, error) {
	if len(rows) != d {
		return nil, domain.NewShapeError("rows", len(rows), d)
	}
	data := make([]float64, 0, d*d)
	for _, r := range rows {
		if len(r) != d {
			return nil, domain.NewShapeError("cols", len(r), d)
		}
		data = append(data, r...)
	}
	return mat.NewDense(d, d, data), nil
}

// Validate checks the architecture invariants.
func (w *Weights) Validate() error {
	if w.Heads <= 0 || w.Dim%w.Heads != 0 {
		return fmt.Errorf("%w: %d heads do not divide dim %d", domain.ErrInvalidWeights, w.Heads, w.Dim)
	}
	for i, l := range w.Layers {
		for name, v := range map[string][]float64{
			"bq": l.Bq, "bk": l.Bk, "bv": l.Bv, "bo": l.Bo, "gamma": l.Gamma, "beta": l.Beta,
		} {
			if len(v) != w.Dim {
				return fmt.Errorf("%w: layer %d %s: %w", domain.ErrInvalidWeights, i, name,
					domain.NewShapeError("len", len(v), w.Dim))
			}
		}
		for name, m := range map[string]*mat.Dense{"wq": l.Wq, "wk": l.Wk, "wv": l.Wv, "wo": l.Wo} {
			if m == nil {
				return fmt.Errorf("%w: layer %d %s missing", domain.ErrInvalidWeights, i, name)
			}
			if r, c := m.Dims(); r != w.Dim || c != w.Dim {
				return fmt.Errorf("%w: layer %d %s is %dx%d", domain.ErrInvalidWeights, i, name, r, c)
			}
		}
	}
	return nil
}

// RandomWeights returns Xavier-uniform projections, zero biases, unit gamma and zero
// beta. The same seed always yields the same weights.
func RandomWeights(dim, heads, layers int, seed uint64) (*Weights, error) {
	if dim <= 0 || layers <= 0 {
		return nil, fmt.Errorf("%w: dim %d, %d layers", domain.ErrInvalidWeights, dim, layers)
	}
	rng := rand.New(rand.NewPCG(seed, 0xf051)) //nolint:gosec // reproducible init, not crypto
	limit := math.Sqrt(6 / float64(2*dim))
	xavier := func() *mat.Dense {
		data := make([]float64, dim*dim)
		for i := range data {
			data[i] = (rng.Float64()*2 - 1) * limit
		}
		return mat.NewDense(dim, dim, data)
	}

	w := &Weights{Dim: dim, Heads: heads, Layers: make([]Layer, layers)}
	for i := range w.Layers {
		gamma := make([]float64, dim)
		for j := range gamma {
			gamma[j] = 1
		}
		w.Layers[i] = Layer{
			Wq: xavier(), Wk: xavier(), Wv: xavier(), Wo: xavier(),
			Bq: make([]float64, dim), Bk: make([]float64, dim),
			Bv: make([]float64, dim), Bo: make([]float64, dim),
			Gamma: gamma, Beta: make([]float64, dim),
		}
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}
