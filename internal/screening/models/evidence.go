package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dErrors "screener/pkg/domain-errors"
)

// Strength grades how strongly one evidence item supports a violation.
type Strength string

const (
	StrengthLow    Strength = "LOW"
	StrengthMedium Strength = "MEDIUM"
	StrengthHigh   Strength = "HIGH"
)

// IsValid checks if the strength is one of the supported values.
func (s Strength) IsValid() bool {
	return s == StrengthLow || s == StrengthMedium || s == StrengthHigh
}

// ParseStrength parses a strength case-insensitively.
func ParseStrength(s string) (Strength, error) {
	st := Strength(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown evidence strength %q", s)
	}
	return st, nil
}

// InstrumentKind distinguishes single companies from baskets (funds, ETFs).
type InstrumentKind string

const (
	KindCompany InstrumentKind = "company"
	KindBasket  InstrumentKind = "basket"
)

// Source is a citation target. It is never used in scoring.
type Source struct {
	Domain    string `json:"domain" yaml:"domain"`
	Title     string `json:"title" yaml:"title"`
	URL       string `json:"url" yaml:"url"`
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
}

// Evidence is one normalised observation linking an instrument to a policy.
// Immutable once ingested.
type Evidence struct {
	ID           string       `json:"id" yaml:"id"`
	InstrumentID uuid.UUID    `json:"instrument_id" yaml:"-"`
	Policy       Policy       `json:"policy" yaml:"policy"`
	SubCategory  *BDSCategory `json:"sub_category,omitempty" yaml:"sub_category,omitempty"`
	Strength     Strength     `json:"strength" yaml:"strength"`
	Notes        string       `json:"notes" yaml:"notes"`
	ObservedAt   time.Time    `json:"observed_at" yaml:"observed_at"`
	Source       Source       `json:"source" yaml:"source"`
}

// FinancialRatios are the inputs to the religious-compliance ratio screen.
// Ratios are fractions (0.33 is 33%).
type FinancialRatios struct {
	DebtRatio                float64   `json:"debt_ratio" yaml:"debt_ratio"`
	CashRatio                float64   `json:"cash_ratio" yaml:"cash_ratio"`
	ReceivablesRatio         float64   `json:"receivables_ratio" yaml:"receivables_ratio"`
	ImpermissibleIncomeRatio float64   `json:"impermissible_income_ratio" yaml:"impermissible_income_ratio"`
	AsOf                     time.Time `json:"as_of" yaml:"as_of"`
	// Estimated marks ratios substituted from an external estimate rather
	// than stored filings.
	Estimated bool `json:"estimated" yaml:"-"`
}

// ContractSummary aggregates an instrument's defense contract awards.
type ContractSummary struct {
	TotalUSD      decimal.Decimal `json:"total_usd" yaml:"total_usd"`
	ContractCount int             `json:"contract_count" yaml:"contract_count"`
	AsOf          time.Time       `json:"as_of" yaml:"as_of"`
}

// Instrument is a screenable company or basket. Instruments are never hard
// deleted; Active=false marks a soft deactivation.
type Instrument struct {
	ID         uuid.UUID        `json:"id"`
	Symbol     string           `json:"symbol"`
	Name       string           `json:"name"`
	Kind       InstrumentKind   `json:"kind"`
	Active     bool             `json:"active"`
	Financials *FinancialRatios `json:"financials,omitempty"`
	Contracts  *ContractSummary `json:"contracts,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// IsBasket reports whether the instrument has look-through holdings.
func (i *Instrument) IsBasket() bool {
	return i != nil && i.Kind == KindBasket
}

// Holding is a weighted edge from a basket to an underlying instrument.
// Weight is percent of the basket; holdings need not sum to 100.
type Holding struct {
	BasketID uuid.UUID `json:"basket_id" yaml:"-"`
	Symbol   string    `json:"symbol" yaml:"symbol"`
	Weight   float64   `json:"weight" yaml:"weight"`
}
