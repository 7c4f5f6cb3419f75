package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// Usage collects per-request resource counters.
// The HTTP handler puts a pointer into the context before calling a service;
// services add to it; the handler reads it back for response headers.
type Usage struct {
	embeddingTokens atomic.Int64
	generatedTokens atomic.Int64
	decodeSteps     atomic.Int64
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector, or nil if none was installed.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records provider tokens. Safe on a nil receiver.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.embeddingTokens.Add(int64(n))
	}
}

// AddGeneration records one decoder pass. Safe on a nil receiver.
func (u *Usage) AddGeneration(tokens, steps int) {
	if u != nil {
		u.generatedTokens.Add(int64(tokens))
		u.decodeSteps.Add(int64(steps))
	}
}

// EmbeddingTokens returns the embedding tokens recorded so far.
func (u *Usage) EmbeddingTokens() int {
	if u == nil {
		return 0
	}
	return int(u.embeddingTokens.Load())
}

// GeneratedTokens returns the number of tokens emitted by the decoder.
func (u *Usage) GeneratedTokens() int {
	if u == nil {
		return 0
	}
	return int(u.generatedTokens.Load())
}

// DecodeSteps returns the number of beam-search steps run.
func (u *Usage) DecodeSteps() int {
	if u == nil {
		return 0
	}
	return int(u.decodeSteps.Load())
}
