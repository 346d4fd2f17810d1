package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "screener/pkg/domain-errors"
)

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" Shariah ")
	require.NoError(t, err)
	assert.Equal(t, PolicyShariah, p)

	_, err = ParsePolicy("esg")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseBDSCategory(t *testing.T) {
	for _, c := range AllBDSCategories {
		got, err := ParseBDSCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseBDSCategory("tourism")
	assert.Error(t, err)
}

func TestStatusOrdering(t *testing.T) {
	assert.Equal(t, StatusExcluded, StatusReview.Worse(StatusExcluded))
	assert.Equal(t, StatusReview, StatusReview.Worse(StatusPass))
	assert.Equal(t, StatusPass, Status("").Worse(StatusPass))
	assert.Equal(t, VerdictReview, StatusReview.Verdict())
	assert.Equal(t, StatusExcluded, VerdictExcluded.Status())
}

func TestMinConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceLow, MinConfidence(ConfidenceHigh, ConfidenceLow))
	assert.Equal(t, ConfidenceMedium, MinConfidence(ConfidenceMedium, ConfidenceHigh))
}

func TestFiltersEnabled(t *testing.T) {
	f := Filters{Defense: true}
	assert.True(t, f.Enabled(PolicyDefense))
	assert.False(t, f.Enabled(PolicyBDS))
	assert.False(t, f.Enabled(Policy("other")))
	for _, p := range AllPolicies {
		assert.True(t, AllFilters().Enabled(p))
	}
}

func TestStatusesGet(t *testing.T) {
	var s Statuses
	s.Get(PolicySurveillance).Overall = StatusReview
	assert.Equal(t, StatusReview, s.Surveillance.Overall)
	assert.Nil(t, s.Get(Policy("x")))
	assert.Len(t, s.InOrder(), len(AllPolicies))
}
