package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"screener/internal/screening/models"
)

// contractFindings applies the contract-award thresholds. A nil summary adds
// nothing; the evidence-based status stands.
func contractFindings(cfg DefenseConfig, contracts *models.ContractSummary) (models.Status, []string) {
	if contracts == nil {
		return models.StatusPass, nil
	}
	total := contracts.TotalUSD
	switch {
	case cfg.MajorContractorUSD > 0 && total.GreaterThanOrEqual(decimal.NewFromInt(cfg.MajorContractorUSD)):
		return models.StatusExcluded, []string{fmt.Sprintf("Major contractor: %s total", formatUSD(total))}
	case cfg.ContractorReviewUSD > 0 && total.GreaterThanOrEqual(decimal.NewFromInt(cfg.ContractorReviewUSD)):
		return models.StatusReview, []string{fmt.Sprintf("Defense contractor: %s total", formatUSD(total))}
	}
	return models.StatusPass, nil
}

// formatUSD renders whole dollars with thousands separators, e.g. $1,250,000.
func formatUSD(d decimal.Decimal) string {
	digits := d.Abs().Round(0).StringFixed(0)
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
