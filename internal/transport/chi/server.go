// Package chi exposes the summary and quiz pipelines over HTTP.
package chi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/slidegen/internal/domain"
	"github.com/kailas-cloud/slidegen/internal/logger"
	healthuc "github.com/kailas-cloud/slidegen/internal/usecase/health"
	"github.com/kailas-cloud/slidegen/internal/vision"
)

// Summarizer turns a slide into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, in domain.SlideInput) (domain.Summary, error)
}

// QuizGenerator turns a summary into a quiz item.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, summary string) (domain.QuizRecord, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Config tunes the HTTP surface.
type Config struct {
	MaxConcurrent int
	MaxBodyBytes  int64
	APIKeys       []string
}

// Server serves the slidegen API.
type Server struct {
	summaries     Summarizer
	quizzes       QuizGenerator
	health        HealthChecker
	limiter       *Limiter
	cfg           Config
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	summaries Summarizer,
	quizzes QuizGenerator,
	health HealthChecker,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 16 << 20
	}
	s := &Server{
		summaries: summaries,
		quizzes:   quizzes,
		health:    health,
		limiter:   NewLimiter(cfg.MaxConcurrent),
		cfg:       cfg,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		timeoutHandler,
		sentinelHandler(domain.ErrModelNotLoaded, http.StatusServiceUnavailable, ErrorCodeModelNotLoaded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingFailed),
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, ErrorCodeValidationFailed),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(s.cfg.APIKeys))
		r.Use(s.limiter.Middleware)
		r.Post("/v1/summaries", s.CreateSummary)
		r.Post("/v1/quizzes", s.CreateQuiz)
	})
}

// Handler returns a router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// CreateSummary handles POST /v1/summaries.
// Accepts multipart/form-data (text field, optional image file) or JSON.
func (s *Server) CreateSummary(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	text, raw, err := s.readSlide(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	in := domain.SlideInput{Text: text}
	var imageErr error
	if len(raw) > 0 {
		img, _, err := vision.DecodeBytes(raw)
		if err != nil {
			// A broken upload degrades to the text-only path instead of failing.
			logger.FromContextOr(r.Context(), s.logger).Warn("slide image rejected", zap.Error(err))
			imageErr = err
		} else {
			in.Image = img
		}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	sum, err := s.summaries.Summarize(ctx, in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setUsageHeaders(w, usage)
	resp := SummaryResponse{Summary: sum}
	if imageErr != nil {
		resp.ImageError = domain.ErrCorruptImage.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readSlide(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.cfg.MaxBodyBytes); err != nil {
			return "", nil, fmt.Errorf("parse multipart form: %w", err)
		}
		text := r.FormValue("text")
		f, _, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return text, nil, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("read image part: %w", err)
		}
		defer func() { _ = f.Close() }()
		raw, err := io.ReadAll(f)
		if err != nil {
			return "", nil, fmt.Errorf("read image part: %w", err)
		}
		return text, raw, nil
	}

	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, fmt.Errorf("decode json: %w", err)
	}
	if req.ImageBase64 == "" {
		return req.Text, nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return "", nil, fmt.Errorf("image_base64: %w", err)
	}
	return req.Text, raw, nil
}

// CreateQuiz handles POST /v1/quizzes.
func (s *Server) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	rec, err := s.quizzes.GenerateQuiz(ctx, req.Summary)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, rec)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if n := usage.EmbeddingTokens(); n > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(n))
	}
	w.Header().Set("X-Generated-Tokens", strconv.Itoa(usage.GeneratedTokens()))
	w.Header().Set("X-Decode-Steps", strconv.Itoa(usage.DecodeSteps()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrModelNotLoaded,
		domain.ErrEmbeddingProviderError,
		domain.ErrEmptyInput,
		context.DeadlineExceeded,
		context.Canceled,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// timeoutHandler maps an expired or cancelled request context to 504.
func timeoutHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return false
	}
	writeError(w, http.StatusGatewayTimeout, ErrorCodeTimeout, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}
