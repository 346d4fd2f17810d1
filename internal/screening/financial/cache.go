package financial

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"screener/internal/screening/models"
	"screener/internal/screening/ports"
	"screener/pkg/platform/sentinel"
)

// Cache stores provider answers by symbol. Get returns sentinel.ErrNotFound
// on a miss.
type Cache interface {
	Get(ctx context.Context, symbol string) (*models.FinancialRatios, error)
	Set(ctx context.Context, symbol string, ratios *models.FinancialRatios) error
}

// CachedProvider consults the cache before the wrapped provider. Cache
// faults are logged and bypassed, so results never depend on the cache.
type CachedProvider struct {
	next   ports.FinancialDataProvider
	cache  Cache
	logger *slog.Logger
}

func NewCachedProvider(next ports.FinancialDataProvider, cache Cache, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachedProvider{next: next, cache: cache, logger: logger}
}

func (c *CachedProvider) FetchRatios(ctx context.Context, symbol string) (*models.FinancialRatios, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	cached, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		c.logger.WarnContext(ctx, "financial cache read failed",
			"symbol", key,
			"error", err,
		)
	}

	ratios, err := c.next.FetchRatios(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, ratios); err != nil {
		c.logger.WarnContext(ctx, "financial cache write failed",
			"symbol", key,
			"error", err,
		)
	}
	return ratios, nil
}
