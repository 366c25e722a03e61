package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"authgate/internal/platform/metrics"
	"authgate/internal/ratelimit/models"
	"authgate/pkg/platform/httputil"
	"authgate/pkg/requestcontext"
)

// Limiter counts requests per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

// Middleware limits requests per client IP. It needs the client metadata
// middleware to run first.
type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
	now      func() time.Time
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for tests and demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithMetrics counts rejected requests.
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit rejects requests with 429 once the client IP has used up limit
// for the named bucket. A failing limiter lets the request through.
func (m *Middleware) RateLimit(bucket string, limit models.Limit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || limit.Requests <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.limiter.Allow(ctx, bucket+":ip:"+ip, limit.Requests, limit.Window)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit", "bucket", bucket, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded", "bucket", bucket, "client_ip", ip)
				m.metrics.IncrementRateLimited(bucket)
				m.writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func (m *Middleware) writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	retryAfter := result.RetryAfter(m.now())
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many attempts from this IP address. Please try again later.",
		RetryAfter: retryAfter,
	})
}
