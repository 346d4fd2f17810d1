package handler

import (
	"screener/internal/screening/models"
	"screener/internal/screening/service"
	dErrors "screener/pkg/domain-errors"
)

// ScreenRequest is the HTTP request body for POST /screen.
type ScreenRequest struct {
	Symbols []string       `json:"symbols"`
	Filters models.Filters `json:"filters"`
	Options models.Options `json:"options"`
}

// Validate rejects oversized or empty bodies before the service runs.
// Field-level rules live in the service so every caller gets them.
func (r *ScreenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Symbols) == 0 {
		return dErrors.New(dErrors.CodeValidation, "symbols is required")
	}
	if len(r.Symbols) > service.MaxSymbols {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d symbols per request", service.MaxSymbols)
	}
	return nil
}

// ToModel converts the body to the service request.
func (r *ScreenRequest) ToModel() models.ScreenRequest {
	return models.ScreenRequest{
		Symbols: r.Symbols,
		Filters: r.Filters,
		Options: r.Options,
	}
}
