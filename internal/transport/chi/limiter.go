package chi

import (
	"net/http"

	"github.com/kailas-cloud/slidegen/internal/metrics"
)

// Limiter admits at most n concurrent generations. It never queues: a request that
// finds every slot taken is rejected with 429 at once.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a limiter with n slots. n <= 0 means one slot.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Middleware wraps next with admission control.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case l.slots <- struct{}{}:
		default:
			metrics.HTTPRejectedTotal.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, ErrorCodeRateLimited, "too many concurrent generations")
			return
		}
		metrics.HTTPInFlight.Inc()
		defer func() {
			metrics.HTTPInFlight.Dec()
			<-l.slots
		}()
		next.ServeHTTP(w, r)
	})
}
