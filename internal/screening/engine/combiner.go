package engine

import (
	"time"

	"screener/internal/screening/models"
)

// CombineVerdict is worst-wins over any number of statuses. With no input
// the verdict is PASS.
func CombineVerdict(statuses ...models.Status) models.Verdict {
	worst := models.StatusPass
	for _, s := range statuses {
		worst = worst.Worse(s)
	}
	return worst.Verdict()
}

// CollectReasons concatenates, in policy order, each evaluated policy's
// category evidence texts followed by its own reasons. Duplicates are kept.
func CollectReasons(statuses models.Statuses) []string {
	reasons := []string{}
	for _, ps := range statuses.InOrder() {
		if !ps.Evaluated {
			continue
		}
		for _, c := range ps.Categories {
			reasons = append(reasons, c.EvidenceTexts...)
		}
		reasons = append(reasons, ps.Reasons...)
	}
	return reasons
}

// CombineConfidence is the weakest confidence among the evaluated policies
// that produced the final status. For PASS every evaluated policy counts.
func CombineConfidence(statuses models.Statuses, final models.Verdict) models.Confidence {
	confidence := models.ConfidenceHigh
	target := final.Status()
	for _, ps := range statuses.InOrder() {
		if !ps.Evaluated {
			continue
		}
		if final != models.VerdictPass && ps.Overall != target {
			continue
		}
		confidence = models.MinConfidence(confidence, ps.Confidence)
	}
	return confidence
}

// CollectSources lists citations for the scored evidence, first occurrence
// per URL. Evidence without a URL is not citable.
func CollectSources(evidence []models.Evidence) []models.Citation {
	seen := make(map[string]struct{}, len(evidence))
	sources := []models.Citation{}
	for _, e := range evidence {
		if e.Source.URL == "" {
			continue
		}
		if _, ok := seen[e.Source.URL]; ok {
			continue
		}
		seen[e.Source.URL] = struct{}{}
		sources = append(sources, models.Citation{Label: citationLabel(e.Source), URL: e.Source.URL})
	}
	return sources
}

func citationLabel(s models.Source) string {
	switch {
	case s.Title != "":
		return s.Title
	case s.Domain != "":
		return s.Domain
	default:
		return s.URL
	}
}

// BuildResult assembles the final result from per-policy statuses. AuditID
// and ScreenedAt are left for the caller.
func BuildResult(inst *models.Instrument, statuses models.Statuses, scored []models.Evidence) models.ScreeningResult {
	overall := make([]models.Status, 0, len(models.AllPolicies))
	for _, ps := range statuses.InOrder() {
		if ps.Evaluated {
			overall = append(overall, ps.Overall)
		}
	}
	verdict := CombineVerdict(overall...)
	return models.ScreeningResult{
		Symbol:         inst.Symbol,
		InstrumentName: inst.Name,
		Kind:           inst.Kind,
		Statuses:       statuses,
		FinalVerdict:   verdict,
		Reasons:        CollectReasons(statuses),
		Confidence:     CombineConfidence(statuses, verdict),
		Sources:        CollectSources(scored),
	}
}

// InstrumentInput is the data gathered for one single-company screen.
type InstrumentInput struct {
	Instrument *models.Instrument
	Evidence   []models.Evidence
	Filters    models.Filters
	// Financials overrides Instrument.Financials when the caller substituted
	// an external estimate. Nil with nil Instrument.Financials means missing.
	Financials *models.FinancialRatios
}

// Evaluation is a screening result plus the category failures met on the way.
type Evaluation struct {
	Result   models.ScreeningResult
	Failures []CategoryFailure
}

// ScreenInstrument evaluates every enabled policy for one instrument and
// combines them.
func ScreenInstrument(cfg Config, in InstrumentInput, now time.Time) Evaluation {
	financials := in.Financials
	if financials == nil {
		financials = in.Instrument.Financials
	}

	var (
		statuses models.Statuses
		scored   []models.Evidence
		failures []CategoryFailure
	)
	for _, p := range models.AllPolicies {
		slot := statuses.Get(p)
		if !in.Filters.Enabled(p) {
			*slot = SkippedPolicy(p)
			continue
		}
		outcome := EvaluatePolicy(cfg, PolicyInput{
			Policy:     p,
			Evidence:   in.Evidence,
			Categories: in.Filters.BDS.Categories,
			Financials: financials,
			Contracts:  in.Instrument.Contracts,
		}, now)
		*slot = outcome.Status
		scored = append(scored, outcome.Scored...)
		failures = append(failures, outcome.Failures...)
	}

	return Evaluation{Result: BuildResult(in.Instrument, statuses, scored), Failures: failures}
}
