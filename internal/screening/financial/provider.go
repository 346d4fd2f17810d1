// Package financial supplies estimated financial ratios for instruments
// that have no stored filings.
package financial

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"screener/internal/screening/models"
	"screener/pkg/platform/circuit"
	"screener/pkg/platform/sentinel"
)

const defaultTimeout = 5 * time.Second

// HTTPProvider fetches ratios from an external JSON API. It never retries;
// a tripped breaker fails fast with sentinel.ErrUnavailable.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

type Option func(*HTTPProvider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPProvider) {
		p.httpClient = c
	}
}

func WithAPIKey(key string) Option {
	return func(p *HTTPProvider) {
		p.apiKey = key
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *HTTPProvider) {
		p.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *HTTPProvider) {
		p.logger = logger
	}
}

// NewHTTPProvider builds a provider for baseURL, e.g. https://ratios.example.com.
func NewHTTPProvider(baseURL string, opts ...Option) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("financial: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("financial: invalid base url: %w", err)
	}
	p := &HTTPProvider{baseURL: strings.TrimSuffix(baseURL, "/")}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if p.breaker == nil {
		p.breaker = circuit.New("financial-api")
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p, nil
}

type ratiosResponse struct {
	Symbol                   string    `json:"symbol"`
	DebtRatio                *float64  `json:"debt_ratio"`
	CashRatio                *float64  `json:"cash_ratio"`
	ReceivablesRatio         *float64  `json:"receivables_ratio"`
	ImpermissibleIncomeRatio *float64  `json:"impermissible_income_ratio"`
	AsOf                     time.Time `json:"as_of"`
}

// FetchRatios returns the provider's ratios for symbol. A 404 is
// sentinel.ErrNotFound and does not count against the breaker.
func (p *HTTPProvider) FetchRatios(ctx context.Context, symbol string) (*models.FinancialRatios, error) {
	if !p.breaker.Allow() {
		return nil, fmt.Errorf("%s circuit open: %w", p.breaker.Name(), sentinel.ErrUnavailable)
	}

	endpoint := p.baseURL + "/v1/ratios/" + url.PathEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create ratios request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.failure(ctx, symbol, err)
		return nil, fmt.Errorf("fetch ratios for %s: %v: %w", symbol, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		p.breaker.RecordSuccess()
		return nil, sentinel.ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		err := fmt.Errorf("status %d", resp.StatusCode)
		p.failure(ctx, symbol, err)
		return nil, fmt.Errorf("fetch ratios for %s: %v: %w", symbol, err, sentinel.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		p.breaker.RecordSuccess()
		return nil, fmt.Errorf("fetch ratios for %s: unexpected status %d", symbol, resp.StatusCode)
	}
	p.breaker.RecordSuccess()

	var body ratiosResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode ratios for %s: %v: %w", symbol, err, sentinel.ErrBadData)
	}
	ratios, err := body.toModel()
	if err != nil {
		return nil, fmt.Errorf("ratios for %s: %v: %w", symbol, err, sentinel.ErrBadData)
	}
	return ratios, nil
}

func (p *HTTPProvider) failure(ctx context.Context, symbol string, err error) {
	if p.breaker.RecordFailure() {
		p.logger.WarnContext(ctx, "financial api circuit opened",
			"breaker", p.breaker.Name(),
			"symbol", symbol,
			"error", err,
		)
	}
}

func (r ratiosResponse) toModel() (*models.FinancialRatios, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"debt_ratio", r.DebtRatio},
		{"cash_ratio", r.CashRatio},
		{"receivables_ratio", r.ReceivablesRatio},
		{"impermissible_income_ratio", r.ImpermissibleIncomeRatio},
	}
	for _, f := range fields {
		if f.value == nil {
			return nil, fmt.Errorf("%s missing", f.name)
		}
		if *f.value < 0 {
			return nil, fmt.Errorf("%s is negative", f.name)
		}
	}
	return &models.FinancialRatios{
		DebtRatio:                *r.DebtRatio,
		CashRatio:                *r.CashRatio,
		ReceivablesRatio:         *r.ReceivablesRatio,
		ImpermissibleIncomeRatio: *r.ImpermissibleIncomeRatio,
		AsOf:                     r.AsOf,
	}, nil
}
