// Package vecmath has the small vector helpers shared by ranking, fusion and decoding.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Float64s widens a float32 vector.
func Float64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero vector
// or their lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Normalize scales v in place to unit L2 norm. Zero vectors are left as is.
func Normalize(v []float64) {
	if n := floats.Norm(v, 2); n > 0 {
		floats.Scale(1/n, v)
	}
}

// Mean returns the element-wise mean of rows, or nil for no rows.
func Mean(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for _, r := range rows {
		floats.Add(out, r)
	}
	floats.Scale(1/float64(len(rows)), out)
	return out
}

// LogSoftmax writes log-probabilities of logits into dst and returns it. Entries equal
// to -Inf stay -Inf. If every entry is -Inf, dst is all -Inf.
func LogSoftmax(dst, logits []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(logits))
	}
	m := floats.Max(logits)
	if math.IsInf(m, -1) {
		for i := range dst {
			dst[i] = math.Inf(-1)
		}
		return dst
	}
	lse := floats.LogSumExp(logits)
	for i, x := range logits {
		dst[i] = x - lse
	}
	return dst
}

// SoftmaxInPlace turns v into a probability distribution, subtracting the max first.
func SoftmaxInPlace(v []float64) {
	m := floats.Max(v)
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - m)
		sum += v[i]
	}
	floats.Scale(1/sum, v)
}
