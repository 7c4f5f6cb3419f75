// Package keyword ranks salient, mutually diverse phrases of a slide's text.
package keyword

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/logger"
	"github.com/kailas-cloud/slidegen/internal/text"
	"github.com/kailas-cloud/slidegen/internal/vecmath"
)

// Config fixes the extraction policy of a deployment.
type Config struct {
	Policy Policy
	// CandidatePool limits MMR to the N most relevant candidates. 0 means all.
	CandidatePool int
}

// Ranker extracts keywords by embedding similarity. Safe for concurrent use.
type Ranker struct {
	embedder domain.Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a ranker. An empty policy defaults to PolicyNounNgrams.
func New(embedder domain.Embedder, cfg Config, log *zap.Logger) *Ranker {
	if cfg.Policy == "" {
		cfg.Policy = PolicyNounNgrams
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ranker{embedder: embedder, cfg: cfg, logger: log}
}

// Policy returns the configured candidate policy.
func (r *Ranker) Policy() Policy { return r.cfg.Policy }

// Extract returns at most topN keywords of s, most salient first, each scored by its
// cosine similarity to the document. Blank text yields an empty set without calling
// the embedder.
func (r *Ranker) Extract(ctx context.Context, s string, topN int, diversity float64) (domain.KeywordSet, error) {
	if topN <= 0 || text.IsBlank(s) {
		return domain.KeywordSet{}, nil
	}

	cands, doc := Candidates(r.cfg.Policy, s)
	if len(cands) == 0 {
		return domain.KeywordSet{}, nil
	}

	res, err := domain.EmbedAll(ctx, r.embedder, append(cands, doc))
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}

	vecs := make([][]float64, len(cands))
	for i := range cands {
		vecs[i] = vecmath.Float64s(res.Embeddings[i])
	}
	docVec := vecmath.Float64s(res.Embeddings[len(cands)])
	rel := make([]float64, len(cands))
	for i, v := range vecs {
		rel[i] = vecmath.Cosine(v, docVec)
	}

	picked := MMR(rel, vecs, topN, diversity, r.cfg.CandidatePool)
	out := make(domain.KeywordSet, len(picked))
	for i, idx := range picked {
		out[i] = domain.Keyword{Phrase: cands[idx], Score: rel[idx]}
	}

	logger.FromContextOr(ctx, r.logger).Debug("keywords extracted",
		zap.String("policy", string(r.cfg.Policy)),
		zap.Int("candidates", len(cands)),
		zap.Strings("keywords", out.Phrases()),
		zap.Float64("diversity", diversity),
	)
	return out, nil
}
