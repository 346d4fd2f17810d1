package models

import "time"

// CategoryStatus is the scored outcome of one evidence group.
type CategoryStatus struct {
	Category      CategoryKey `json:"category"`
	Status        Status      `json:"status"`
	Score         int         `json:"score"`
	EvidenceTexts []string    `json:"evidence_texts"`
}

// PolicyStatus is the outcome of one policy for one instrument.
type PolicyStatus struct {
	Policy Policy `json:"policy"`
	// Evaluated is false when the request disabled the policy.
	Evaluated  bool             `json:"evaluated"`
	Overall    Status           `json:"overall"`
	Categories []CategoryStatus `json:"categories"`
	// Reasons are policy-level findings not captured as category evidence,
	// such as contract totals or ratio breaches.
	Reasons    []string   `json:"reasons,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// Statuses holds one PolicyStatus per policy.
type Statuses struct {
	BDS          PolicyStatus `json:"bds"`
	Defense      PolicyStatus `json:"defense"`
	Surveillance PolicyStatus `json:"surveillance"`
	Shariah      PolicyStatus `json:"shariah"`
}

// Get returns the status for p.
func (s *Statuses) Get(p Policy) *PolicyStatus {
	switch p {
	case PolicyBDS:
		return &s.BDS
	case PolicyDefense:
		return &s.Defense
	case PolicySurveillance:
		return &s.Surveillance
	case PolicyShariah:
		return &s.Shariah
	}
	return nil
}

// InOrder returns the four statuses in reporting order.
func (s Statuses) InOrder() []PolicyStatus {
	return []PolicyStatus{s.BDS, s.Defense, s.Surveillance, s.Shariah}
}

// Citation is a {label, url} reference to a source. Label text is not stable.
type Citation struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// HoldingOutcome records how one holding contributed to a basket verdict.
type HoldingOutcome struct {
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name,omitempty"`
	Weight     float64    `json:"weight"`
	Verdict    Verdict    `json:"verdict"`
	Confidence Confidence `json:"confidence"`
	Resolved   bool       `json:"resolved"`
}

// LookThroughSummary is attached to basket results.
type LookThroughSummary struct {
	ExcludedWeight   float64          `json:"excluded_weight"`
	ReviewWeight     float64          `json:"review_weight"`
	UnresolvedWeight float64          `json:"unresolved_weight"`
	Holdings         []HoldingOutcome `json:"holdings"`
}

// ScreeningResult is the auditable verdict for one instrument. It is never
// mutated after creation.
type ScreeningResult struct {
	Symbol         string              `json:"symbol"`
	InstrumentName string              `json:"instrument_name"`
	Kind           InstrumentKind      `json:"kind,omitempty"`
	Statuses       Statuses            `json:"statuses"`
	FinalVerdict   Verdict             `json:"final_verdict"`
	Reasons        []string            `json:"reasons"`
	Confidence     Confidence          `json:"confidence"`
	Sources        []Citation          `json:"sources"`
	AuditID        string              `json:"audit_id"`
	ScreenedAt     time.Time           `json:"screened_at"`
	LookThrough    *LookThroughSummary `json:"look_through,omitempty"`
}
