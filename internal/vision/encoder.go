// Package vision implements the frozen visual encoder: slide image to patch
// region embeddings.
package vision

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

// Defaults match a ViT-B/16 style input.
const (
	DefaultImageSize = 224
	DefaultPatchSize = 16
)

// Config describes the encoder geometry.
type Config struct {
	ImageSize int
	PatchSize int
	Dim       int
	Seed      uint64
}

// Encoder is read-only after New and safe for concurrent use.
type Encoder struct {
	size, patch, dim int
	proj             *mat.Dense // (3*patch*patch) x dim
	pos              *mat.Dense // (regions+1) x dim
}

// New builds an encoder with a seeded projection.
func New(cfg Config) (*Encoder, error) {
	if cfg.ImageSize <= 0 {
		cfg.ImageSize = DefaultImageSize
	}
	if cfg.PatchSize <= 0 {
		cfg.PatchSize = DefaultPatchSize
	}
	if cfg.Dim <= 0 {
		return nil, fmt.Errorf("vision: dim must be positive, got %d", cfg.Dim)
	}
	if cfg.ImageSize%cfg.PatchSize != 0 {
		return nil, fmt.Errorf("vision: image size %d is not a multiple of patch size %d",
			cfg.ImageSize, cfg.PatchSize)
	}

	in := 3 * cfg.PatchSize * cfg.PatchSize
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x5eed)) //nolint:gosec // frozen weights, not crypto
	scale := 1 / math.Sqrt(float64(in))
	data := make([]float64, in*cfg.Dim)
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}

	grid := cfg.ImageSize / cfg.PatchSize
	return &Encoder{
		size:  cfg.ImageSize,
		patch: cfg.PatchSize,
		dim:   cfg.Dim,
		proj:  mat.NewDense(in, cfg.Dim, data),
		pos:   Positions(grid*grid+1, cfg.Dim),
	}, nil
}

// Dim returns the region embedding width.
func (e *Encoder) Dim() int { return e.dim }

// Regions returns the number of rows Encode produces: one per patch plus CLS.
func (e *Encoder) Regions() int {
	g := e.size / e.patch
	return g*g + 1
}

// Encode maps img to a Regions() x Dim() matrix. Row 0 is the mean-pooled CLS row.
func (e *Encoder) Encode(img image.Image) (*mat.Dense, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, domain.ErrCorruptImage
	}
	rgba := Preprocess(img, e.size)
	patches := e.patches(rgba)

	n, _ := patches.Dims()
	emb := mat.NewDense(n, e.dim, nil)
	emb.Mul(patches, e.proj)

	out := mat.NewDense(n+1, e.dim, nil)
	cls := make([]float64, e.dim)
	for i := range n {
		row := emb.RawRowView(i)
		out.SetRow(i+1, row)
		for j, v := range row {
			cls[j] += v / float64(n)
		}
	}
	out.SetRow(0, cls)
	out.Add(out, e.pos)
	return out, nil
}

// patches flattens each patch into normalised RGB features in [-1, 1].
func (e *Encoder) patches(img *image.RGBA) *mat.Dense {
	grid := e.size / e.patch
	in := 3 * e.patch * e.patch
	out := mat.NewDense(grid*grid, in, nil)
	for py := range grid {
		for px := range grid {
			row := out.RawRowView(py*grid + px)
			k := 0
			for y := py * e.patch; y < (py+1)*e.patch; y++ {
				for x := px * e.patch; x < (px+1)*e.patch; x++ {
					off := img.PixOffset(x, y)
					for c := range 3 {
						row[k] = (float64(img.Pix[off+c])/255 - 0.5) / 0.5
						k++
					}
				}
			}
		}
	}
	return out
}

// Preprocess resizes img to size x size with Catmull-Rom resampling.
func Preprocess(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Positions returns sinusoidal position encodings for n rows of width dim.
func Positions(n, dim int) *mat.Dense {
	m := mat.NewDense(n, dim, nil)
	for pos := range n {
		for i := 0; i < dim; i += 2 {
			angle := float64(pos) / math.Pow(10000, float64(i)/float64(dim))
			m.Set(pos, i, math.Sin(angle))
			if i+1 < dim {
				m.Set(pos, i+1, math.Cos(angle))
			}
		}
	}
	return m
}
