package store

import (
	"fmt"
	"strings"

	"screener/internal/screening/models"
)

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// validateInstrument checks an instrument before it is written.
func validateInstrument(inst *models.Instrument) error {
	if inst == nil {
		return fmt.Errorf("instrument is required")
	}
	if normalizeSymbol(inst.Symbol) == "" {
		return fmt.Errorf("instrument symbol is required")
	}
	switch inst.Kind {
	case models.KindCompany, models.KindBasket:
	default:
		return fmt.Errorf("instrument %s: unknown kind %q", inst.Symbol, inst.Kind)
	}
	return nil
}

// validateEvidence rejects items the grouper could not place.
func validateEvidence(e models.Evidence) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("evidence id is required")
	}
	if !e.Policy.IsValid() {
		return fmt.Errorf("evidence %s: unknown policy %q", e.ID, e.Policy)
	}
	if !e.Strength.IsValid() {
		return fmt.Errorf("evidence %s: unknown strength %q", e.ID, e.Strength)
	}
	if e.SubCategory != nil {
		if !e.Policy.HasCategories() {
			return fmt.Errorf("evidence %s: policy %s has no sub-categories", e.ID, e.Policy)
		}
		if !e.SubCategory.IsValid() {
			return fmt.Errorf("evidence %s: unknown sub-category %q", e.ID, *e.SubCategory)
		}
	}
	return nil
}

func validateHolding(h models.Holding) error {
	if normalizeSymbol(h.Symbol) == "" {
		return fmt.Errorf("holding symbol is required")
	}
	if h.Weight < 0 || h.Weight > 100 {
		return fmt.Errorf("holding %s: weight %.2f outside 0..100", h.Symbol, h.Weight)
	}
	return nil
}
