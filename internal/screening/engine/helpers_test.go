package engine_test

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"screener/internal/screening/models"
)

var evalTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recent and stale sit well inside and outside the recency window.
var (
	recent = evalTime.AddDate(0, -2, 0)
	stale  = evalTime.AddDate(-3, 0, 0)
)

var evidenceSeq int

func bds(cat models.BDSCategory, strength models.Strength, observed time.Time) models.Evidence {
	e := item(models.PolicyBDS, strength, observed)
	e.SubCategory = &cat
	return e
}

func item(policy models.Policy, strength models.Strength, observed time.Time) models.Evidence {
	evidenceSeq++
	id := fmt.Sprintf("ev-%d", evidenceSeq)
	return models.Evidence{
		ID:         id,
		Policy:     policy,
		Strength:   strength,
		Notes:      "note " + id,
		ObservedAt: observed,
		Source: models.Source{
			Domain: "example.org",
			Title:  "Report " + id,
			URL:    "https://example.org/" + id,
		},
	}
}

func company(symbol string) *models.Instrument {
	return &models.Instrument{
		ID:     uuid.New(),
		Symbol: symbol,
		Name:   symbol + " Corp",
		Kind:   models.KindCompany,
		Active: true,
		Financials: &models.FinancialRatios{
			DebtRatio:                0.10,
			CashRatio:                0.10,
			ReceivablesRatio:         0.20,
			ImpermissibleIncomeRatio: 0.01,
		},
	}
}
