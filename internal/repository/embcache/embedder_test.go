package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

func TestEmbed_CacheMissStoresWithTTL(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 10}}
	ce, ms := newTestCachedEmbedder(t, inner)

	res, err := ce.Embed(context.Background(), "운영체제")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTokens != 10 || res.Embedding[0] != 0.1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(ms.sets) != 1 || ms.sets[0] != time.Hour {
		t.Fatalf("expected one SET with 1h TTL, got %v", ms.sets)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("운영체제")] = vectorToCacheBytes([]float32{0.4, 0.5})

	res, err := ce.Embed(context.Background(), "운영체제")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embedding[0] != 0.4 || res.TotalTokens != 0 {
		t.Fatalf("expected cached vector with 0 tokens, got %+v", res)
	}
}

func TestEmbed_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.7}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getErr = errors.New("connection refused")

	res, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("store errors must not fail embedding: %v", err)
	}
	if res.Embedding[0] != 0.7 {
		t.Errorf("unexpected vector %v", res.Embedding)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	innerErr := errors.New("provider down")
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{err: innerErr})

	if _, err := ce.Embed(context.Background(), "x"); !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestCacheKey_NamespaceSeparatesModels(t *testing.T) {
	a := New(nil, nil, Config{Namespace: "m1"}, nil, zap.NewNop())
	b := New(nil, nil, Config{Namespace: "m2"}, nil, zap.NewNop())
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Error("different namespaces must produce different keys")
	}
}

func TestBatchEmbed_MixedHitsMisses(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.9}, TotalTokens: 3}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("b")] = vectorToCacheBytes([]float32{0.2})

	cacheTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t_cache_total"}, []string{"result"})
	ce.cacheTotal = cacheTotal

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 || len(inner.batchTexts) != 2 {
		t.Fatalf("expected one batch call with 2 misses, got %d calls, texts %v", inner.batchCalls, inner.batchTexts)
	}
	if res.Embeddings[0][0] != 0.9 || res.Embeddings[1][0] != 0.2 || res.Embeddings[2][0] != 0.9 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if res.TotalTokens != 6 {
		t.Errorf("expected 6 tokens for misses, got %d", res.TotalTokens)
	}
	if got := testutil.ToFloat64(cacheTotal.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cacheTotal.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestBatchEmbed_AllHitsSkipsInner(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner)
	for _, s := range []string{"a", "b"} {
		ms.data[ce.cacheKey(s)] = vectorToCacheBytes([]float32{1})
	}

	if _, err := ce.BatchEmbed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 0 {
		t.Error("inner must not be called when everything is cached")
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	innerErr := errors.New("batch fail")
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{batchErr: innerErr})

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{})
	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Errorf("expected empty result, got %+v, %v", res, err)
	}
}

func TestBytesToVector_Invalid(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for length not multiple of 4")
	}
}
