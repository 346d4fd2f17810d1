package ports

import (
	"context"

	"github.com/google/uuid"

	"screener/internal/screening/models"
)

// InstrumentStore resolves instruments and their screening inputs.
// Lookups that find nothing return sentinel.ErrNotFound.
type InstrumentStore interface {
	// FindBySymbol resolves an upper-case symbol, including inactive rows.
	FindBySymbol(ctx context.Context, symbol string) (*models.Instrument, error)

	// ListEvidence returns the instrument's evidence ordered by observation
	// time, then ID. No evidence is an empty slice, not an error.
	ListEvidence(ctx context.Context, instrumentID uuid.UUID) ([]models.Evidence, error)

	// ListHoldings returns a basket's holdings in descending weight order.
	ListHoldings(ctx context.Context, basketID uuid.UUID) ([]models.Holding, error)
}

// ResultStore is the append-only audit trail of screening results.
type ResultStore interface {
	Save(ctx context.Context, result *models.ScreeningResult) error
	FindByAuditID(ctx context.Context, auditID string) (*models.ScreeningResult, error)
	// ListBySymbol returns the newest results first, at most limit.
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]models.ScreeningResult, error)
}

// ResultSink receives every finished top-level result. A sink error fails
// the screening call.
type ResultSink interface {
	Publish(ctx context.Context, result *models.ScreeningResult) error
}
