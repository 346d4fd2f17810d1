package engine

import (
	"fmt"
	"sort"
	"strings"

	"screener/internal/screening/models"
)

const (
	reasonDepthLimit = "Look-through depth limit reached"
	reasonNoHoldings = "No holdings on record"

	// weightEpsilon absorbs float drift when summed weights meet a threshold.
	weightEpsilon = 1e-9
)

// HoldingResult pairs a holding with its screening result. Result is nil
// when the holding could not be resolved.
type HoldingResult struct {
	Holding models.Holding
	Result  *models.ScreeningResult
}

// AggregateBasket folds holding results into the basket's own result.
//
// Holding weights are summed by final verdict and compared with the
// look-through thresholds. Unresolved holdings are skipped from the sums and
// lower confidence through coverage. Each enabled policy gets the same
// weighted rollup over the holdings' per-policy statuses. AuditID and
// ScreenedAt are left for the caller.
func AggregateBasket(cfg Config, basket *models.Instrument, filters models.Filters, holdings []HoldingResult) models.ScreeningResult {
	lt := cfg.LookThrough
	summary := &models.LookThroughSummary{Holdings: make([]models.HoldingOutcome, 0, len(holdings))}

	var (
		resolvedWeight float64
		sources        []models.Citation
		seenSources    = map[string]struct{}{}
		capConfidence  = models.ConfidenceHigh
	)
	for _, h := range holdings {
		outcome := models.HoldingOutcome{Symbol: h.Holding.Symbol, Weight: h.Holding.Weight}
		if h.Result == nil {
			summary.UnresolvedWeight += h.Holding.Weight
			summary.Holdings = append(summary.Holdings, outcome)
			continue
		}
		r := h.Result
		outcome.Name = r.InstrumentName
		outcome.Verdict = r.FinalVerdict
		outcome.Confidence = r.Confidence
		outcome.Resolved = true
		summary.Holdings = append(summary.Holdings, outcome)

		resolvedWeight += h.Holding.Weight
		switch r.FinalVerdict {
		case models.VerdictExcluded:
			summary.ExcludedWeight += h.Holding.Weight
		case models.VerdictReview:
			summary.ReviewWeight += h.Holding.Weight
		}
		if r.FinalVerdict != models.VerdictPass {
			capConfidence = models.MinConfidence(capConfidence, r.Confidence)
			for _, c := range r.Sources {
				if _, ok := seenSources[c.URL]; ok {
					continue
				}
				seenSources[c.URL] = struct{}{}
				sources = append(sources, c)
			}
		}
	}

	verdict := basketStatus(lt, summary.ExcludedWeight, summary.ReviewWeight).Verdict()
	coverage := coverageConfidence(lt, resolvedWeight, resolvedWeight+summary.UnresolvedWeight)

	var statuses models.Statuses
	for _, p := range models.AllPolicies {
		slot := statuses.Get(p)
		if !filters.Enabled(p) {
			*slot = SkippedPolicy(p)
			continue
		}
		*slot = policyRollup(lt, p, holdings, coverage)
	}

	if sources == nil {
		sources = []models.Citation{}
	}
	return models.ScreeningResult{
		Symbol:         basket.Symbol,
		InstrumentName: basket.Name,
		Kind:           basket.Kind,
		Statuses:       statuses,
		FinalVerdict:   verdict,
		Reasons:        basketReasons(lt, verdict, summary, holdings),
		Confidence:     models.MinConfidence(coverage, capConfidence),
		Sources:        sources,
		LookThrough:    summary,
	}
}

// DepthLimitResult stands in for a holding that could not be expanded
// because the depth bound was reached or the basket references itself.
func DepthLimitResult(inst *models.Instrument, filters models.Filters) models.ScreeningResult {
	return PlaceholderResult(inst, filters, models.VerdictReview, models.ConfidenceLow, reasonDepthLimit)
}

// PlaceholderResult is a result decided without scoring, used when inputs
// could not be obtained. Every enabled policy carries the verdict's status
// at the given confidence.
func PlaceholderResult(inst *models.Instrument, filters models.Filters, verdict models.Verdict, confidence models.Confidence, reason string) models.ScreeningResult {
	var statuses models.Statuses
	for _, p := range models.AllPolicies {
		slot := statuses.Get(p)
		if !filters.Enabled(p) {
			*slot = SkippedPolicy(p)
			continue
		}
		*slot = models.PolicyStatus{
			Policy:     p,
			Evaluated:  true,
			Overall:    verdict.Status(),
			Categories: []models.CategoryStatus{},
			Confidence: confidence,
		}
	}
	return models.ScreeningResult{
		Symbol:         inst.Symbol,
		InstrumentName: inst.Name,
		Kind:           inst.Kind,
		Statuses:       statuses,
		FinalVerdict:   verdict,
		Reasons:        []string{reason},
		Confidence:     confidence,
		Sources:        []models.Citation{},
	}
}

func basketStatus(lt LookThroughConfig, excluded, review float64) models.Status {
	switch {
	case atLeast(excluded, lt.ExcludeWeight):
		return models.StatusExcluded
	case atLeast(excluded, lt.ExcludeReviewWeight) && excluded > 0:
		return models.StatusReview
	case atLeast(review, lt.ReviewWeight) && review > 0:
		return models.StatusReview
	}
	return models.StatusPass
}

func coverageConfidence(lt LookThroughConfig, resolved, total float64) models.Confidence {
	if total <= 0 {
		return models.ConfidenceLow
	}
	share := resolved / total
	switch {
	case atLeast(share, lt.HighCoverage):
		return models.ConfidenceHigh
	case atLeast(share, lt.MediumCoverage):
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}

func policyRollup(lt LookThroughConfig, p models.Policy, holdings []HoldingResult, coverage models.Confidence) models.PolicyStatus {
	var excluded, review float64
	confidence := coverage
	for _, h := range holdings {
		if h.Result == nil {
			continue
		}
		ps := h.Result.Statuses.Get(p)
		if ps == nil || !ps.Evaluated {
			continue
		}
		switch ps.Overall {
		case models.StatusExcluded:
			excluded += h.Holding.Weight
		case models.StatusReview:
			review += h.Holding.Weight
		}
		if ps.Overall != models.StatusPass {
			confidence = models.MinConfidence(confidence, ps.Confidence)
		}
	}
	return models.PolicyStatus{
		Policy:     p,
		Evaluated:  true,
		Overall:    basketStatus(lt, excluded, review),
		Categories: []models.CategoryStatus{},
		Confidence: confidence,
	}
}

func basketReasons(lt LookThroughConfig, verdict models.Verdict, summary *models.LookThroughSummary, holdings []HoldingResult) []string {
	reasons := []string{}
	if len(holdings) == 0 {
		return append(reasons, reasonNoHoldings)
	}
	if summary.ExcludedWeight > 0 {
		reasons = append(reasons, fmt.Sprintf("Excluded holdings: %.1f%% of basket", summary.ExcludedWeight))
	}
	if summary.ReviewWeight > 0 {
		reasons = append(reasons, fmt.Sprintf("Holdings under review: %.1f%% of basket", summary.ReviewWeight))
	}
	if verdict == models.VerdictExcluded && lt.MaxOffenders > 0 {
		if top := topOffenders(holdings, lt.MaxOffenders); top != "" {
			reasons = append(reasons, "Top excluded holdings: "+top)
		}
	}
	if summary.UnresolvedWeight > 0 {
		reasons = append(reasons, fmt.Sprintf("Unresolved holdings: %.1f%% of basket not screened", summary.UnresolvedWeight))
	}
	return reasons
}

// topOffenders names the heaviest excluded holdings, ties broken by symbol.
func topOffenders(holdings []HoldingResult, limit int) string {
	var excluded []models.Holding
	for _, h := range holdings {
		if h.Result != nil && h.Result.FinalVerdict == models.VerdictExcluded {
			excluded = append(excluded, h.Holding)
		}
	}
	sort.SliceStable(excluded, func(i, j int) bool {
		if excluded[i].Weight != excluded[j].Weight {
			return excluded[i].Weight > excluded[j].Weight
		}
		return excluded[i].Symbol < excluded[j].Symbol
	})
	if len(excluded) > limit {
		excluded = excluded[:limit]
	}
	parts := make([]string, 0, len(excluded))
	for _, h := range excluded {
		parts = append(parts, fmt.Sprintf("%s (%.1f%%)", h.Symbol, h.Weight))
	}
	return strings.Join(parts, ", ")
}

func atLeast(value, threshold float64) bool {
	return value >= threshold-weightEpsilon
}
