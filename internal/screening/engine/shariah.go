package engine

import (
	"fmt"

	"screener/internal/screening/models"
)

const (
	reasonInsufficientFinancials = "Insufficient financial data"
	reasonEstimatedFinancials    = "Financial ratios estimated from external data"
)

// ratioLimit pairs a measured ratio with its configured ceiling.
type ratioLimit struct {
	label string
	value float64
	max   float64
}

// ratioFindings checks financial ratios against the configured ceilings.
// Missing data forces review at Low confidence. Estimated data is usable but
// caps confidence at Medium. override is empty when the evidence-derived
// confidence should stand.
func ratioFindings(cfg ShariahConfig, fin *models.FinancialRatios) (status models.Status, reasons []string, override models.Confidence) {
	if fin == nil {
		return models.StatusReview, []string{reasonInsufficientFinancials}, models.ConfidenceLow
	}

	status = models.StatusPass
	limits := []ratioLimit{
		{label: "Debt ratio", value: fin.DebtRatio, max: cfg.MaxDebtRatio},
		{label: "Cash ratio", value: fin.CashRatio, max: cfg.MaxCashRatio},
		{label: "Receivables ratio", value: fin.ReceivablesRatio, max: cfg.MaxReceivablesRatio},
		{label: "Impermissible income ratio", value: fin.ImpermissibleIncomeRatio, max: cfg.MaxImpermissibleIncomeRatio},
	}
	for _, l := range limits {
		if l.value > l.max {
			status = models.StatusExcluded
			reasons = append(reasons, fmt.Sprintf("%s %.1f%% exceeds %.1f%% limit", l.label, l.value*100, l.max*100))
		}
	}
	if fin.Estimated {
		reasons = append(reasons, reasonEstimatedFinancials)
		override = models.ConfidenceMedium
	}
	return status, reasons, override
}
