package engine

import (
	"time"

	"screener/internal/screening/models"
)

// PolicyInput is everything one policy evaluation needs about an instrument.
type PolicyInput struct {
	Policy models.Policy
	// Evidence is the instrument's full evidence set; grouping selects the
	// items for Policy.
	Evidence []models.Evidence
	// Categories restricts BDS grouping. Empty means all.
	Categories []models.BDSCategory
	// Financials are the ratios available for the shariah screen, stored or
	// estimated. Nil means none could be obtained.
	Financials *models.FinancialRatios
	Contracts  *models.ContractSummary
}

// CategoryFailure records a group that could not be scored. The group is
// reported as pass and the failure surfaces as a warning.
type CategoryFailure struct {
	Policy   models.Policy
	Category models.CategoryKey
	Err      error
}

// PolicyOutcome is the evaluated status plus the evidence that was scored.
type PolicyOutcome struct {
	Status   models.PolicyStatus
	Scored   []models.Evidence
	Failures []CategoryFailure
}

// EvaluatePolicy groups, scores and rates one policy.
//
// The overall status is the worst category status, worsened by the policy's
// own data checks (contract totals for defense, ratio ceilings for shariah).
func EvaluatePolicy(cfg Config, in PolicyInput, now time.Time) PolicyOutcome {
	groups := GroupEvidence(in.Policy, in.Evidence, in.Categories)

	out := PolicyOutcome{
		Status: models.PolicyStatus{
			Policy:     in.Policy,
			Evaluated:  true,
			Overall:    models.StatusPass,
			Categories: make([]models.CategoryStatus, 0, len(groups)),
		},
	}

	for _, g := range groups {
		cs, err := ScoreCategory(cfg.Scoring, g.Key, g.Evidence, now)
		if err != nil {
			out.Failures = append(out.Failures, CategoryFailure{Policy: in.Policy, Category: g.Key, Err: err})
			cs = models.CategoryStatus{Category: g.Key, Status: models.StatusPass, EvidenceTexts: []string{}}
		} else {
			out.Scored = append(out.Scored, g.Evidence...)
		}
		out.Status.Categories = append(out.Status.Categories, cs)
		out.Status.Overall = out.Status.Overall.Worse(cs.Status)
	}

	confidence := EstimateConfidence(cfg.Confidence, out.Scored, out.Status.Categories)

	switch in.Policy {
	case models.PolicyDefense:
		status, reasons := contractFindings(cfg.Defense, in.Contracts)
		out.Status.Overall = out.Status.Overall.Worse(status)
		out.Status.Reasons = reasons
	case models.PolicyShariah:
		status, reasons, override := ratioFindings(cfg.Shariah, in.Financials)
		out.Status.Overall = out.Status.Overall.Worse(status)
		out.Status.Reasons = reasons
		if override != "" {
			confidence = override
		}
	}

	out.Status.Confidence = confidence
	return out
}

// SkippedPolicy is the status reported for a policy the request disabled.
func SkippedPolicy(p models.Policy) models.PolicyStatus {
	return models.PolicyStatus{
		Policy:     p,
		Evaluated:  false,
		Overall:    models.StatusPass,
		Categories: []models.CategoryStatus{},
		Confidence: models.ConfidenceHigh,
	}
}
