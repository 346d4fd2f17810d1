package models

// Depth limits for basket look-through.
const (
	MinDepth     = 1
	MaxDepth     = 5
	DefaultDepth = 1
)

// BDSFilter enables the boycott policy and optionally restricts categories.
// An empty Categories list means all six.
type BDSFilter struct {
	Enabled    bool          `json:"enabled"`
	Categories []BDSCategory `json:"categories,omitempty"`
}

// Filters selects which policies are evaluated.
type Filters struct {
	BDS          BDSFilter `json:"bds"`
	Defense      bool      `json:"defense"`
	Surveillance bool      `json:"surveillance"`
	Shariah      bool      `json:"shariah"`
}

// Enabled reports whether p is selected.
func (f Filters) Enabled(p Policy) bool {
	switch p {
	case PolicyBDS:
		return f.BDS.Enabled
	case PolicyDefense:
		return f.Defense
	case PolicySurveillance:
		return f.Surveillance
	case PolicyShariah:
		return f.Shariah
	}
	return false
}

// AllFilters enables every policy and every BDS category.
func AllFilters() Filters {
	return Filters{BDS: BDSFilter{Enabled: true}, Defense: true, Surveillance: true, Shariah: true}
}

// Options controls basket handling.
type Options struct {
	LookThrough bool `json:"lookthrough"`
	MaxDepth    int  `json:"max_depth"`
}

// ScreenRequest is the engine input contract.
type ScreenRequest struct {
	Symbols []string `json:"symbols"`
	Filters Filters  `json:"filters"`
	Options Options  `json:"options"`
}

// WarningCode classifies non-fatal conditions reported at the caller boundary.
type WarningCode string

const (
	WarningNotFound            WarningCode = "not_found"
	WarningInactive            WarningCode = "inactive"
	WarningHoldingUnresolved   WarningCode = "holding_unresolved"
	WarningLowConfidence       WarningCode = "low_confidence"
	WarningCategoryFailed      WarningCode = "category_failed"
	WarningEvidenceUnavailable WarningCode = "evidence_unavailable"
	WarningDataEstimated       WarningCode = "data_estimated"
	WarningDataMissing         WarningCode = "data_missing"
	WarningDepthLimit          WarningCode = "depth_limit"
	WarningDuplicateSymbol     WarningCode = "duplicate_symbol"
)

// Warning is a recoverable condition that did not abort screening.
type Warning struct {
	Symbol  string      `json:"symbol"`
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// ScreenResponse is the engine output contract: results in request order.
type ScreenResponse struct {
	Results  []ScreeningResult `json:"results"`
	Warnings []Warning         `json:"warnings"`
}
