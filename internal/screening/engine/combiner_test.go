package engine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/screening/engine"
	"screener/internal/screening/models"
)

func TestCombineVerdict(t *testing.T) {
	t.Run("no statuses is a pass", func(t *testing.T) {
		assert.Equal(t, models.VerdictPass, engine.CombineVerdict())
	})

	t.Run("worst status wins", func(t *testing.T) {
		assert.Equal(t, models.VerdictReview, engine.CombineVerdict(models.StatusPass, models.StatusReview, models.StatusPass))
		assert.Equal(t, models.VerdictExcluded, engine.CombineVerdict(models.StatusReview, models.StatusExcluded))
		assert.Equal(t, models.VerdictPass, engine.CombineVerdict(models.StatusPass, models.StatusPass))
	})

	t.Run("result is invariant under permutation", func(t *testing.T) {
		values := []models.Status{models.StatusPass, models.StatusReview, models.StatusExcluded}
		for _, a := range values {
			for _, b := range values {
				for _, c := range values {
					for _, d := range values {
						want := engine.CombineVerdict(a, b, c, d)
						for _, perm := range permutations([]models.Status{a, b, c, d}) {
							require.Equal(t, want, engine.CombineVerdict(perm...), "permutation %v", perm)
						}
					}
				}
			}
		}
	})
}

func permutations(in []models.Status) [][]models.Status {
	if len(in) <= 1 {
		return [][]models.Status{append([]models.Status(nil), in...)}
	}
	var out [][]models.Status
	for i := range in {
		rest := make([]models.Status, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]models.Status{in[i]}, p...))
		}
	}
	return out
}

func TestCollectReasons(t *testing.T) {
	var statuses models.Statuses
	statuses.BDS = models.PolicyStatus{
		Policy: models.PolicyBDS, Evaluated: true,
		Categories: []models.CategoryStatus{
			{EvidenceTexts: []string{"bds one"}},
			{EvidenceTexts: []string{"bds two", "dup"}},
		},
	}
	statuses.Defense = models.PolicyStatus{
		Policy: models.PolicyDefense, Evaluated: true,
		Categories: []models.CategoryStatus{{EvidenceTexts: []string{"dup"}}},
		Reasons:    []string{"Major contractor: $2,000,000,000 total"},
	}
	statuses.Surveillance = models.PolicyStatus{
		Policy: models.PolicySurveillance, Evaluated: false,
		Categories: []models.CategoryStatus{{EvidenceTexts: []string{"ignored"}}},
	}
	statuses.Shariah = models.PolicyStatus{
		Policy: models.PolicyShariah, Evaluated: true,
		Reasons: []string{"Insufficient financial data"},
	}

	want := []string{"bds one", "bds two", "dup", "dup", "Major contractor: $2,000,000,000 total", "Insufficient financial data"}
	if diff := cmp.Diff(want, engine.CollectReasons(statuses)); diff != "" {
		t.Errorf("CollectReasons mismatch (-want +got):\n%s", diff)
	}
}

func TestCombineConfidence(t *testing.T) {
	evaluated := func(p models.Policy, s models.Status, c models.Confidence) models.PolicyStatus {
		return models.PolicyStatus{Policy: p, Evaluated: true, Overall: s, Confidence: c}
	}

	t.Run("only policies matching the final status count", func(t *testing.T) {
		statuses := models.Statuses{
			BDS:          evaluated(models.PolicyBDS, models.StatusReview, models.ConfidenceMedium),
			Defense:      evaluated(models.PolicyDefense, models.StatusPass, models.ConfidenceLow),
			Surveillance: evaluated(models.PolicySurveillance, models.StatusPass, models.ConfidenceHigh),
			Shariah:      evaluated(models.PolicyShariah, models.StatusReview, models.ConfidenceHigh),
		}
		assert.Equal(t, models.ConfidenceMedium, engine.CombineConfidence(statuses, models.VerdictReview))
	})

	t.Run("pass takes the weakest evaluated policy", func(t *testing.T) {
		statuses := models.Statuses{
			BDS:          evaluated(models.PolicyBDS, models.StatusPass, models.ConfidenceHigh),
			Defense:      evaluated(models.PolicyDefense, models.StatusPass, models.ConfidenceLow),
			Surveillance: engine.SkippedPolicy(models.PolicySurveillance),
			Shariah:      engine.SkippedPolicy(models.PolicyShariah),
		}
		assert.Equal(t, models.ConfidenceLow, engine.CombineConfidence(statuses, models.VerdictPass))
	})

	t.Run("nothing evaluated is high", func(t *testing.T) {
		var statuses models.Statuses
		for _, p := range models.AllPolicies {
			*statuses.Get(p) = engine.SkippedPolicy(p)
		}
		assert.Equal(t, models.ConfidenceHigh, engine.CombineConfidence(statuses, models.VerdictPass))
	})
}

func TestCollectSources(t *testing.T) {
	a := item(models.PolicyBDS, models.StrengthHigh, recent)
	b := item(models.PolicyDefense, models.StrengthLow, recent)
	b.Source.URL = a.Source.URL
	c := item(models.PolicyDefense, models.StrengthLow, recent)
	c.Source.Title = ""
	d := item(models.PolicyDefense, models.StrengthLow, recent)
	d.Source.URL = ""

	got := engine.CollectSources([]models.Evidence{a, b, c, d})
	want := []models.Citation{
		{Label: a.Source.Title, URL: a.Source.URL},
		{Label: "example.org", URL: c.Source.URL},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CollectSources mismatch (-want +got):\n%s", diff)
	}
}

func TestScreenInstrument(t *testing.T) {
	cfg := engine.DefaultConfig()

	t.Run("clean instrument passes with high confidence", func(t *testing.T) {
		eval := engine.ScreenInstrument(cfg, engine.InstrumentInput{
			Instrument: company("CLEAN"),
			Filters:    models.AllFilters(),
		}, evalTime)
		r := eval.Result
		assert.Equal(t, models.VerdictPass, r.FinalVerdict)
		assert.Equal(t, models.ConfidenceHigh, r.Confidence)
		assert.Empty(t, r.Reasons)
		assert.Empty(t, r.Sources)
		assert.Empty(t, eval.Failures)
		for _, ps := range r.Statuses.InOrder() {
			assert.True(t, ps.Evaluated, ps.Policy)
			assert.Equal(t, models.StatusPass, ps.Overall, ps.Policy)
		}
	})

	t.Run("high settlement evidence excludes", func(t *testing.T) {
		e := bds(models.BDSSettlementEnterprise, models.StrengthHigh, stale)
		eval := engine.ScreenInstrument(cfg, engine.InstrumentInput{
			Instrument: company("SETL"),
			Evidence:   []models.Evidence{e},
			Filters:    models.AllFilters(),
		}, evalTime)
		r := eval.Result
		assert.Equal(t, models.StatusExcluded, r.Statuses.BDS.Overall)
		assert.Equal(t, models.VerdictExcluded, r.FinalVerdict)
		assert.Equal(t, []string{engine.EvidenceText(e)}, r.Reasons)
		assert.Equal(t, []models.Citation{{Label: e.Source.Title, URL: e.Source.URL}}, r.Sources)
		assert.Equal(t, "SETL Corp", r.InstrumentName)
	})

	t.Run("missing financial data reviews at low confidence", func(t *testing.T) {
		inst := company("NODATA")
		inst.Financials = nil
		eval := engine.ScreenInstrument(cfg, engine.InstrumentInput{
			Instrument: inst,
			Filters:    models.Filters{Shariah: true},
		}, evalTime)
		r := eval.Result
		assert.Equal(t, models.VerdictReview, r.FinalVerdict)
		assert.Equal(t, models.ConfidenceLow, r.Confidence)
		assert.Contains(t, r.Reasons, "Insufficient financial data")
	})

	t.Run("substituted estimate takes precedence", func(t *testing.T) {
		inst := company("EST")
		inst.Financials = nil
		eval := engine.ScreenInstrument(cfg, engine.InstrumentInput{
			Instrument: inst,
			Filters:    models.Filters{Shariah: true},
			Financials: &models.FinancialRatios{DebtRatio: 0.1, Estimated: true},
		}, evalTime)
		assert.Equal(t, models.VerdictPass, eval.Result.FinalVerdict)
		assert.Equal(t, models.ConfidenceMedium, eval.Result.Confidence)
	})

	t.Run("disabled policies contribute nothing", func(t *testing.T) {
		eval := engine.ScreenInstrument(cfg, engine.InstrumentInput{
			Instrument: company("DEF"),
			Evidence:   []models.Evidence{item(models.PolicyDefense, models.StrengthHigh, recent)},
			Filters:    models.Filters{BDS: models.BDSFilter{Enabled: true}},
		}, evalTime)
		r := eval.Result
		assert.Equal(t, models.VerdictPass, r.FinalVerdict)
		assert.False(t, r.Statuses.Defense.Evaluated)
		assert.Equal(t, models.StatusPass, r.Statuses.Defense.Overall)
		assert.Empty(t, r.Reasons)
		assert.Empty(t, r.Sources)
	})

	t.Run("out-of-scope categories never influence the result", func(t *testing.T) {
		eval := engine.ScreenInstrument(cfg, engine.InstrumentInput{
			Instrument: company("SCOPE"),
			Evidence: []models.Evidence{
				bds(models.BDSSettlementEnterprise, models.StrengthHigh, recent),
			},
			Filters: models.Filters{BDS: models.BDSFilter{Enabled: true, Categories: []models.BDSCategory{models.BDSServicesToSettlements}}},
		}, evalTime)
		r := eval.Result
		assert.Equal(t, models.VerdictPass, r.FinalVerdict)
		require.Len(t, r.Statuses.BDS.Categories, 1)
		assert.Empty(t, r.Reasons)
		assert.Empty(t, r.Sources)
	})

	t.Run("category failure is surfaced and scored as pass", func(t *testing.T) {
		eval := engine.ScreenInstrument(cfg, engine.InstrumentInput{
			Instrument: company("BROKEN"),
			Evidence:   []models.Evidence{item(models.PolicySurveillance, models.Strength("?"), recent)},
			Filters:    models.AllFilters(),
		}, evalTime)
		require.Len(t, eval.Failures, 1)
		assert.Equal(t, models.PolicySurveillance, eval.Failures[0].Policy)
		assert.Equal(t, models.VerdictPass, eval.Result.FinalVerdict)
	})
}
