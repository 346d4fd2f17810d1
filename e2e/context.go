//go:build e2e

// Package e2e runs the Gherkin feature suite against an in-process screening
// server built from the same components as cmd/server.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"screener/internal/platform/metrics"
	ratelimit "screener/internal/ratelimit/middleware"
	rlmodels "screener/internal/ratelimit/models"
	"screener/internal/ratelimit/store/bucket"
	"screener/internal/screening/dataset"
	"screener/internal/screening/handler"
	screeningMetrics "screener/internal/screening/metrics"
	"screener/internal/screening/service"
	"screener/internal/screening/store"
	httptransport "screener/internal/transport/http"
	"screener/pkg/platform/audit/publishers/compliance"
	auditmemory "screener/pkg/platform/audit/store/memory"
)

// TestContext holds the server under test and the last response.
type TestContext struct {
	server      *httptest.Server
	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header
}

// Start boots a fresh server seeded with testdata/dataset.yaml. A zero
// requestsPerMinute disables rate limiting.
func (tc *TestContext) Start(requestsPerMinute int) error {
	tc.Close()
	ctx := context.Background()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	data, err := dataset.ReadFile(filepath.Join("testdata", "dataset.yaml"))
	if err != nil {
		return err
	}
	instruments := store.NewInMemoryStore()
	if _, err := data.Apply(ctx, instruments); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	screenMetrics := screeningMetrics.New(reg)
	httpMetrics := metrics.New(reg)
	results := store.NewInMemoryResultStore()

	svc, err := service.New(instruments,
		service.WithLogger(discard),
		service.WithMetrics(screenMetrics),
		service.WithResultStore(results),
		service.WithResultSink(results),
		service.WithAuditPublisher(compliance.New(auditmemory.NewInMemoryStore())),
	)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(bucket.NewInMemoryBucketStore(),
		rlmodels.Limit{RequestsPerWindow: requestsPerMinute, Window: time.Minute}, discard,
		ratelimit.WithRejectedCounter(httpMetrics.RateLimited))

	tc.server = httptest.NewServer(httptransport.NewRouter(httptransport.Config{
		Modules:       []httptransport.Registrar{handler.New(svc, discard)},
		APIMiddleware: []func(http.Handler) http.Handler{limiter.RateLimit},
		Metrics:       httpMetrics,
		Gatherer:      reg,
		Logger:        discard,
	}))
	return nil
}

// Close stops the server if one is running.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
		tc.server = nil
	}
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
}

// POST sends body as JSON. A []byte body is sent verbatim.
func (tc *TestContext) POST(path string, body interface{}) error {
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		raw = encoded
	}
	req, err := http.NewRequest(http.MethodPost, tc.url(path), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.url(path), nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeaders == nil {
		return ""
	}
	return tc.lastHeaders.Get(name)
}

func (tc *TestContext) url(path string) string {
	if tc.server == nil {
		return path
	}
	return tc.server.URL + path
}

func (tc *TestContext) do(req *http.Request) error {
	if tc.server == nil {
		return fmt.Errorf("server not started")
	}
	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	tc.lastBody = body
	tc.lastHeaders = resp.Header
	return nil
}
