package chi

import "github.com/kailas-cloud/slidegen/internal/domain"

// ErrorCode is the machine-readable error class of an API error.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeRateLimited      ErrorCode = "rate_limited"
	ErrorCodeModelNotLoaded   ErrorCode = "model_not_loaded"
	ErrorCodeEmbeddingFailed  ErrorCode = "embedding_provider_error"
	ErrorCodeTimeout          ErrorCode = "timeout"
	ErrorCodeInternal         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SummaryRequest is the JSON form of POST /v1/summaries.
type SummaryRequest struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// SummaryResponse carries a generated summary.
type SummaryResponse struct {
	domain.Summary
	ImageError string `json:"image_error,omitempty"`
}

// QuizRequest is the body of POST /v1/quizzes.
type QuizRequest struct {
	Summary string `json:"summary"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
