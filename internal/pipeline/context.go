// Package pipeline owns the read-only model handles shared by every request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/slidegen/internal/decoder"
	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/fusion"
	"github.com/kailas-cloud/slidegen/internal/keyword"
	"github.com/kailas-cloud/slidegen/internal/lm"
	"github.com/kailas-cloud/slidegen/internal/metrics"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
	"github.com/kailas-cloud/slidegen/internal/vision"
)

// Config describes the models. Start from Defaults and override.
type Config struct {
	HiddenDim int
	Seed      uint64

	VocabPath string
	Tokenizer tokenizer.Config

	Keywords keyword.Config
	Vision   vision.Config
	Fusion   fusion.Config

	// Manifests maps a stage to a manifest file. Stages without a path use the
	// builtin manifest.
	Manifests map[string]string
}

// Defaults returns the reference architecture.
func Defaults() Config {
	return Config{
		HiddenDim: 64,
		Seed:      1,
		Tokenizer: tokenizer.Config{MaxInputTokens: 512},
		Keywords:  keyword.Config{Policy: keyword.PolicyNounNgrams},
		Vision:    vision.Config{ImageSize: vision.DefaultImageSize, PatchSize: vision.DefaultPatchSize},
		Fusion:    fusion.Config{Heads: 8, Layers: 2},
	}
}

// Context holds every model handle. It is built once and read-only afterwards, so
// it is shared across concurrent requests without locking.
type Context struct {
	tok        *tokenizer.Tokenizer
	embeddings *tokenizer.EmbeddingTable
	ranker     *keyword.Ranker
	vision     *vision.Encoder
	fusion     *fusion.Encoder
	decoder    *decoder.Decoder
	models     map[string]decoder.LanguageModel
	logger     *zap.Logger
}

// New builds the pipeline. Any failure here is a startup failure.
func New(cfg Config, embedder domain.Embedder, log *zap.Logger) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if embedder == nil {
		return nil, fmt.Errorf("pipeline: embedder is required")
	}
	if cfg.HiddenDim <= 0 {
		return nil, fmt.Errorf("pipeline: hidden dim must be positive, got %d", cfg.HiddenDim)
	}

	manifests, err := loadManifests(cfg.Manifests)
	if err != nil {
		return nil, err
	}

	// Literal pieces must be part of the base vocabulary so stage models can pin them.
	splitter := tokenizer.New(tokenizer.NewVocab(), tokenizer.Config{})
	var literal []string
	for _, m := range manifests {
		literal = append(literal, m.Pieces(splitter.Pieces)...)
	}
	var vocab *tokenizer.Vocab
	if cfg.VocabPath != "" {
		if vocab, err = tokenizer.LoadVocab(cfg.VocabPath, literal...); err != nil {
			return nil, err //nolint:wrapcheck // already names the file
		}
	} else {
		vocab = tokenizer.NewVocab(literal...)
	}
	tok := tokenizer.New(vocab, cfg.Tokenizer)

	cfg.Vision.Dim, cfg.Vision.Seed = cfg.HiddenDim, cfg.Seed
	venc, err := vision.New(cfg.Vision)
	if err != nil {
		return nil, fmt.Errorf("vision encoder: %w", err)
	}
	cfg.Fusion.Dim = cfg.HiddenDim
	if cfg.Fusion.Seed == 0 {
		cfg.Fusion.Seed = cfg.Seed
	}
	fenc, err := fusion.New(cfg.Fusion)
	if err != nil {
		return nil, fmt.Errorf("fusion encoder: %w", err)
	}

	models := make(map[string]decoder.LanguageModel, len(manifests))
	for stage, m := range manifests {
		model, err := lm.Compile(m, tok)
		if err != nil {
			return nil, fmt.Errorf("compile %s model: %w", stage, err)
		}
		models[stage] = model
	}

	log.Info("pipeline ready",
		zap.Int("hidden_dim", cfg.HiddenDim),
		zap.Int("vocab", vocab.Size()),
		zap.Int("fusion_layers", cfg.Fusion.Layers),
		zap.Int("fusion_heads", cfg.Fusion.Heads),
		zap.Bool("fusion_weights_loaded", cfg.Fusion.WeightsPath != ""),
		zap.String("keyword_policy", string(cfg.Keywords.Policy)),
		zap.Int("max_input_tokens", cfg.Tokenizer.MaxInputTokens),
	)

	return &Context{
		tok:        tok,
		embeddings: tokenizer.NewEmbeddingTable(cfg.HiddenDim, cfg.Seed),
		ranker:     keyword.New(embedder, cfg.Keywords, log),
		vision:     venc,
		fusion:     fenc,
		decoder:    decoder.New(tokenizer.EOSID, log),
		models:     models,
		logger:     log,
	}, nil
}

func loadManifests(paths map[string]string) (map[string]*lm.Manifest, error) {
	out := make(map[string]*lm.Manifest)
	for _, stage := range []string{lm.StageSummary, lm.StageQuestion, lm.StageAnswer} {
		var (
			m   *lm.Manifest
			err error
		)
		if p := paths[stage]; p != "" {
			m, err = lm.LoadManifest(p)
		} else {
			m, err = lm.BuiltinManifest(stage)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s manifest: %w", stage, err)
		}
		out[stage] = m
	}
	return out, nil
}

// Tokenizer returns the shared tokenizer.
func (c *Context) Tokenizer() *tokenizer.Tokenizer { return c.tok }

// Ranker returns the keyword ranker.
func (c *Context) Ranker() *keyword.Ranker { return c.ranker }

// Decoder returns the beam search decoder.
func (c *Context) Decoder() *decoder.Decoder { return c.decoder }

// Model returns the language model of stage.
func (c *Context) Model(stage string) (decoder.LanguageModel, error) {
	m, ok := c.models[stage]
	if !ok {
		return nil, fmt.Errorf("stage %q: %w", stage, domain.ErrModelNotLoaded)
	}
	return m, nil
}

// Prepared is an encoded prompt ready for decoding. It belongs to one request.
type Prepared struct {
	Input     *decoder.Input
	Overlay   *tokenizer.Overlay
	Truncated bool
	ImageUsed bool
	// ImageErr is set when an image was given but could not be encoded; the prompt
	// then took the text-only path.
	ImageErr error
}

// Prepare tokenises prompt, embeds it and fuses it with img. A nil img, or one the
// vision encoder rejects, yields the text-only representation.
func (c *Context) Prepare(prompt string, img image.Image) (*Prepared, error) {
	defer observeStage("encode", time.Now())

	ov := c.tok.NewOverlay()
	enc := c.tok.EncodeInput(ov, prompt)
	tokens := c.embeddings.Embed(ov, enc.IDs)

	p := &Prepared{Overlay: ov, Truncated: enc.Truncated}
	var regions *mat.Dense
	if img != nil {
		r, err := c.vision.Encode(img)
		if err != nil {
			p.ImageErr = err
		} else {
			regions, p.ImageUsed = r, true
		}
	}

	fused, err := c.fusion.Encode(tokens, regions)
	if err != nil {
		return nil, fmt.Errorf("fuse prompt: %w", err)
	}
	p.Input = &decoder.Input{
		States:  fused,
		Tokens:  enc.IDs,
		Pieces:  enc.Pieces,
		Vocab:   ov.Size(),
		Regions: c.tok.Regions(enc.IDs),
	}
	return p, nil
}

// observeStage records the time since start under stage.
func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Generation is a decoded stage output.
type Generation struct {
	Text   string
	Result decoder.Result
}

// Generate runs the stage model over p and detokenises the winner. On cancellation
// the partial text is returned with the context error.
func (c *Context) Generate(ctx context.Context, stage string, p *Prepared, cons domain.GenerationConstraints) (Generation, error) {
	model, err := c.Model(stage)
	if err != nil {
		return Generation{}, err
	}
	start := time.Now()
	res, err := c.decoder.Generate(ctx, model, p.Input, cons)
	observeStage("decode_"+stage, start)
	metrics.DecodeStepsTotal.WithLabelValues(stage).Add(float64(res.Steps))
	metrics.DecodeResultsTotal.WithLabelValues(stage, outcome(res, err)).Inc()
	domain.UsageFromContext(ctx).AddGeneration(len(res.Tokens), res.Steps)

	gen := Generation{Text: c.tok.Decode(p.Overlay, res.Tokens), Result: res}
	if err != nil {
		return gen, fmt.Errorf("generate %s: %w", stage, err)
	}
	return gen, nil
}

func outcome(res decoder.Result, err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case err != nil:
		return "error"
	case res.Terminated:
		return "terminated"
	default:
		return "partial"
	}
}

// ForcedStart returns the ids of phrase's pieces, resolved through p's overlay.
func (c *Context) ForcedStart(p *Prepared, phrase string) []int {
	return c.tok.Encode(p.Overlay, phrase)
}
