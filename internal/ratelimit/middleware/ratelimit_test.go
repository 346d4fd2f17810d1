package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/ratelimit/models"
	"screener/internal/ratelimit/store/bucket"
	"screener/pkg/platform/circuit"
)

type failingStore struct {
	calls int
}

func (f *failingStore) AllowN(context.Context, string, int, int, time.Duration) (*models.RateLimitResult, error) {
	f.calls++
	return nil, errors.New("redis: connection refused")
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/screen", nil)
	req.RemoteAddr = ip + ":51234"
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit(t *testing.T) {
	t.Run("allows within budget and sets headers", func(t *testing.T) {
		m := New(bucket.NewInMemoryBucketStore(), models.Limit{RequestsPerWindow: 2, Window: time.Minute}, discard)
		h := m.RateLimit(okHandler())

		rr := serve(h, request("10.0.0.1"))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))
		assert.Empty(t, rr.Header().Get(HeaderStatus))
	})

	t.Run("rejects over budget per client", func(t *testing.T) {
		rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "rejected_total"})
		m := New(bucket.NewInMemoryBucketStore(), models.Limit{RequestsPerWindow: 1, Window: time.Minute}, discard,
			WithRejectedCounter(rejected))
		h := m.RateLimit(okHandler())

		require.Equal(t, http.StatusOK, serve(h, request("10.0.0.1")).Code)
		rr := serve(h, request("10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")
		assert.Equal(t, 1.0, testutil.ToFloat64(rejected))

		assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.2")).Code)
	})

	t.Run("forwarded address is the client", func(t *testing.T) {
		m := New(bucket.NewInMemoryBucketStore(), models.Limit{RequestsPerWindow: 1, Window: time.Minute}, discard)
		h := m.RateLimit(okHandler())

		first := request("192.168.1.1")
		first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		second := request("192.168.1.2")
		second.Header.Set("X-Forwarded-For", "203.0.113.7")

		require.Equal(t, http.StatusOK, serve(h, first).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(h, second).Code)
	})

	t.Run("disabled limit passes everything", func(t *testing.T) {
		store := &failingStore{}
		m := New(store, models.Limit{}, discard)
		h := m.RateLimit(okHandler())

		for range 5 {
			assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1")).Code)
		}
		assert.Zero(t, store.calls)
	})
}

func TestRateLimitDegradesWhenStoreFails(t *testing.T) {
	t.Run("fails open without a fallback", func(t *testing.T) {
		m := New(&failingStore{}, models.Limit{RequestsPerWindow: 1, Window: time.Minute}, discard)
		h := m.RateLimit(okHandler())

		for range 3 {
			rr := serve(h, request("10.0.0.1"))
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "degraded", rr.Header().Get(HeaderStatus))
		}
	})

	t.Run("fallback enforces and breaker stops calling the primary", func(t *testing.T) {
		primary := &failingStore{}
		m := New(primary, models.Limit{RequestsPerWindow: 2, Window: time.Minute}, discard,
			WithFallback(bucket.NewInMemoryBucketStore()),
			WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
		)
		h := m.RateLimit(okHandler())

		assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1")).Code)
		assert.Equal(t, http.StatusOK, serve(h, request("10.0.0.1")).Code)
		rr := serve(h, request("10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "degraded", rr.Header().Get(HeaderStatus))
		assert.Equal(t, 2, primary.calls)
	})
}

func TestClientIPFromRequest(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "198.51.100.4:443", want: "198.51.100.4"},
		{name: "ipv6 remote addr", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "x-real-ip", headers: map[string]string{"X-Real-IP": " 203.0.113.9 "}, remote: "10.0.0.1:1", want: "203.0.113.9"},
		{name: "first forwarded hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2"}, remote: "10.0.0.1:1", want: "203.0.113.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIPFromRequest(req))
		})
	}
}
