// Package middleware enforces per-client request budgets on the screening API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"screener/internal/ratelimit/models"
	"screener/pkg/platform/circuit"
	"screener/pkg/platform/httputil"
)

// HeaderStatus is set to "degraded" while checks are served by the fallback.
const HeaderStatus = "X-RateLimit-Status"

// BucketStore is the sliding window backend.
type BucketStore interface {
	AllowN(ctx context.Context, key string, cost int, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limit    models.Limit
	logger   *slog.Logger
	rejected prometheus.Counter
}

type Option func(*Middleware)

// WithFallback sets the store used while the primary is failing. Without one
// the middleware fails open.
func WithFallback(store BucketStore) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

// WithBreaker replaces the default primary-store breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.breaker = b
	}
}

// WithRejectedCounter counts 429 responses.
func WithRejectedCounter(c prometheus.Counter) Option {
	return func(m *Middleware) {
		m.rejected = c
	}
}

func New(primary BucketStore, limit models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		limit:   limit,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.breaker == nil {
		m.breaker = circuit.New("ratelimit-store")
	}
	if !limit.Enabled() {
		m.logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit spends one unit of the caller's budget per request.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.limit.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := ClientIPFromRequest(r)
		result, degraded := m.check(ctx, models.NewClientKey(ip))
		if degraded {
			w.Header().Set(HeaderStatus, "degraded")
		}
		if result == nil {
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			if m.rejected != nil {
				m.rejected.Inc()
			}
			writeRateLimitExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check consults the primary store unless its breaker is open. A nil result
// means no store could answer and the request is let through.
func (m *Middleware) check(ctx context.Context, key string) (*models.RateLimitResult, bool) {
	if m.breaker.Allow() {
		result, err := m.primary.AllowN(ctx, key, 1, m.limit.RequestsPerWindow, m.limit.Window)
		if err == nil {
			m.breaker.RecordSuccess()
			return result, false
		}
		if m.breaker.RecordFailure() {
			m.logger.WarnContext(ctx, "rate limit store circuit opened", "error", err)
		} else {
			m.logger.ErrorContext(ctx, "failed to check rate limit", "error", err)
		}
	}

	if m.fallback == nil {
		return nil, true
	}
	result, err := m.fallback.AllowN(ctx, key, 1, m.limit.RequestsPerWindow, m.limit.Window)
	if err != nil {
		m.logger.ErrorContext(ctx, "fallback rate limit check failed", "error", err)
		return nil, true
	}
	return result, true
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many screening requests from this address. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
