package service

import (
	"context"
	"errors"
	"sync"

	"screener/internal/screening/models"
	"screener/internal/screening/ports"
	"screener/pkg/platform/sentinel"
)

// Financial lookup outcomes, also used as metric labels.
const (
	financialStored    = "stored"
	financialEstimated = "estimated"
	financialMissing   = "missing"
)

// financialLookups memoises external ratio fetches for one screening call so
// each symbol is fetched at most once, however many baskets hold it.
type financialLookups struct {
	provider ports.FinancialDataProvider

	mu      sync.Mutex
	entries map[string]*financialEntry
}

type financialEntry struct {
	once   sync.Once
	ratios *models.FinancialRatios
	err    error
}

func newFinancialLookups(provider ports.FinancialDataProvider) *financialLookups {
	return &financialLookups{provider: provider, entries: make(map[string]*financialEntry)}
}

// fetch returns estimated ratios for symbol. The result, including a
// failure, is shared by every caller in the same call.
func (l *financialLookups) fetch(ctx context.Context, symbol string) (*models.FinancialRatios, error) {
	if l.provider == nil {
		return nil, sentinel.ErrUnavailable
	}

	l.mu.Lock()
	entry, ok := l.entries[symbol]
	if !ok {
		entry = &financialEntry{}
		l.entries[symbol] = entry
	}
	l.mu.Unlock()

	entry.once.Do(func() {
		ratios, err := l.provider.FetchRatios(ctx, symbol)
		if err == nil && ratios == nil {
			err = sentinel.ErrNotFound
		}
		if err != nil {
			entry.err = err
			return
		}
		estimated := *ratios
		estimated.Estimated = true
		entry.ratios = &estimated
	})
	return entry.ratios, entry.err
}

// resolveFinancials picks the ratios the shariah screen will use. Stored
// ratios win; otherwise the provider is asked once. A nil result means the
// data is missing.
func (s *Service) resolveFinancials(ctx context.Context, call *screenCall, inst *models.Instrument) (*models.FinancialRatios, []models.Warning) {
	if !call.plan.filters.Shariah {
		return nil, nil
	}
	if inst.Financials != nil {
		s.metrics.IncrementFinancialLookup(financialStored)
		return nil, nil
	}

	ratios, err := call.financials.fetch(ctx, inst.Symbol)
	if err != nil {
		s.metrics.IncrementFinancialLookup(financialMissing)
		if !errors.Is(err, sentinel.ErrUnavailable) && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "financial data lookup failed",
				"symbol", inst.Symbol,
				"error", err,
			)
		}
		return nil, []models.Warning{{
			Symbol:  inst.Symbol,
			Code:    models.WarningDataMissing,
			Message: "financial ratios unavailable; shariah screen needs review",
		}}
	}

	s.metrics.IncrementFinancialLookup(financialEstimated)
	return ratios, []models.Warning{{
		Symbol:  inst.Symbol,
		Code:    models.WarningDataEstimated,
		Message: "financial ratios estimated from external data",
	}}
}
