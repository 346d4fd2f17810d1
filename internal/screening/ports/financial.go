package ports

import (
	"context"

	"screener/internal/screening/models"
)

// FinancialDataProvider supplies estimated ratios when none are stored.
// Implementations return sentinel.ErrNotFound when the symbol is unknown
// upstream and sentinel.ErrUnavailable when the upstream cannot be reached.
type FinancialDataProvider interface {
	FetchRatios(ctx context.Context, symbol string) (*models.FinancialRatios, error)
}
