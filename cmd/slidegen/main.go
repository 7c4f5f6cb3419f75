package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/config"
	"github.com/kailas-cloud/slidegen/internal/db"
	dbRedis "github.com/kailas-cloud/slidegen/internal/db/redis"
	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/fusion"
	"github.com/kailas-cloud/slidegen/internal/keyword"
	logpkg "github.com/kailas-cloud/slidegen/internal/logger"
	"github.com/kailas-cloud/slidegen/internal/metrics"
	"github.com/kailas-cloud/slidegen/internal/pipeline"
	"github.com/kailas-cloud/slidegen/internal/repository/embcache"
	"github.com/kailas-cloud/slidegen/internal/tokenizer"
	chiTransport "github.com/kailas-cloud/slidegen/internal/transport/chi"
	"github.com/kailas-cloud/slidegen/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/slidegen/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/slidegen/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/slidegen/internal/usecase/health"
	quizuc "github.com/kailas-cloud/slidegen/internal/usecase/quiz"
	summaryuc "github.com/kailas-cloud/slidegen/internal/usecase/summary"
	"github.com/kailas-cloud/slidegen/internal/version"
	"github.com/kailas-cloud/slidegen/internal/vision"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting slidegen API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("summary_variant", cfg.Summary.Variant),
	)

	// Optional embedding cache. Redis and Valkey speak the same protocol.
	var store db.Store
	if cfg.Cache.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Cache.Addrs,
			Username:   cfg.Cache.Username,
			Password:   cfg.Cache.Password,
			DB:         cfg.Cache.DB,
			ClientName: "slidegen",
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	embedder := buildEmbedder(cfg.Embedding, cfg.Cache, store, logger)

	pc, err := pipeline.New(pipelineConfig(cfg.Pipeline), embedder, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	summarySvc := summaryuc.New(pc.Ranker(), pc, summaryuc.Config{
		Variant:     summaryuc.Variant(cfg.Summary.Variant),
		Instruction: orDefault(cfg.Summary.Instruction, summaryuc.DefaultInstruction),
		TopN:        cfg.Pipeline.Keywords.TopN,
		Diversity:   *cfg.Pipeline.Keywords.Diversity,
		ForcedStart: *cfg.Summary.ForcedStart,
		Constraints: cfg.Summary.Constraints.Constraints(),
	}, logger)

	quizSvc := quizuc.New(pc, quizuc.Config{
		QuestionInstruction: orDefault(cfg.Quiz.QuestionInstruction, quizuc.DefaultQuestionInstruction),
		AnswerInstruction:   orDefault(cfg.Quiz.AnswerInstruction, quizuc.DefaultAnswerInstruction),
		Question:            cfg.Quiz.Question.Constraints(),
		Answer:              cfg.Quiz.Answer.Constraints(),
	}, logger)

	// Pass nil interface (not typed nil pointer!) when the cache is off.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(pc, cachePinger, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(summarySvc, quizSvc, healthSvc, chiTransport.Config{
		MaxConcurrent: cfg.HTTP.MaxConcurrent,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		APIKeys:       cfg.Auth.APIKeys,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr),
			zap.Int("max_concurrent", cfg.HTTP.MaxConcurrent))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func pipelineConfig(c config.PipelineConfig) pipeline.Config {
	return pipeline.Config{
		HiddenDim: c.HiddenDim,
		Seed:      c.Seed,
		VocabPath: c.VocabPath,
		Tokenizer: tokenizer.Config{
			MaxInputTokens: c.MaxInputTokens,
			PadToMaxLength: c.PadToMaxLength,
		},
		Keywords: keyword.Config{
			Policy:        keyword.Policy(c.Keywords.Policy),
			CandidatePool: c.Keywords.CandidatePool,
		},
		Vision: vision.Config{
			ImageSize: c.Vision.ImageSize,
			PatchSize: c.Vision.PatchSize,
		},
		Fusion: fusion.Config{
			Heads:       c.Fusion.Heads,
			Layers:      c.Fusion.Layers,
			Seed:        c.Fusion.Seed,
			WeightsPath: c.Fusion.WeightsPath,
		},
		Manifests: c.Manifests,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Prefixed
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	cacheCfg config.CacheConfig,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	var base domain.Embedder
	model := embCfg.Model
	switch embCfg.Provider {
	case "openai":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     embCfg.APIKey,
			BaseURL:    embCfg.BaseURL,
			Model:      embCfg.Model,
			Dimensions: embCfg.Dimensions,
			Provider:   embCfg.Provider,
			Logger:     logger,
		})
	default:
		l := local.NewEmbedder(embCfg.Dimensions)
		base = l
		model = fmt.Sprintf("hashing-%d", l.Dim())
	}

	// Cached
	embedder := base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Config{
			Namespace: embCfg.Provider + ":" + model,
			TTL:       time.Duration(cacheCfg.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (usage + logs)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, embCfg.Provider, model, logger).
		WithMaxBatchSize(embCfg.MaxBatchSize)

	// Instruction prefix is outermost so the cache key includes it
	if embCfg.Instruction != "" {
		return domain.NewPrefixedEmbedder(embedder, embCfg.Instruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternal,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("generated_tokens", ww.Header().Get("X-Generated-Tokens")),
			)
		})
	}
}
