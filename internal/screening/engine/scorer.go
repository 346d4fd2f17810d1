package engine

import (
	"fmt"
	"strings"
	"time"

	"screener/internal/screening/models"
)

const evidenceDateLayout = "2006-01-02"

// ScoreCategory converts one evidence group into a score and status.
//
// Each item earns base points by strength plus a recency bonus when observed
// within the recency window before now. The summed score is compared with the
// category's threshold pair; independently, a group with VolumeReviewCount or
// more items is at least under review. An empty group passes with score 0.
//
// The only error is malformed evidence (unknown strength); the caller decides
// how to degrade.
func ScoreCategory(cfg ScoringConfig, key models.CategoryKey, group []models.Evidence, now time.Time) (models.CategoryStatus, error) {
	result := models.CategoryStatus{
		Category:      key,
		Status:        models.StatusPass,
		EvidenceTexts: []string{},
	}
	if len(group) == 0 {
		return result, nil
	}

	score := 0
	texts := make([]string, 0, len(group))
	for _, e := range group {
		points, err := cfg.basePoints(e.Strength)
		if err != nil {
			return models.CategoryStatus{}, fmt.Errorf("evidence %s: %w", e.ID, err)
		}
		if cfg.isRecent(e.ObservedAt, now) {
			points += cfg.RecencyBonus
		}
		score += points
		texts = append(texts, EvidenceText(e))
	}

	threshold := cfg.ThresholdFor(key)
	switch {
	case score >= threshold.ExcludeAt:
		result.Status = models.StatusExcluded
	case score >= threshold.ReviewAt:
		result.Status = models.StatusReview
	case cfg.VolumeReviewCount > 0 && len(group) >= cfg.VolumeReviewCount:
		result.Status = models.StatusReview
	}
	result.Score = score
	result.EvidenceTexts = texts
	return result, nil
}

func (c ScoringConfig) basePoints(s models.Strength) (int, error) {
	switch s {
	case models.StrengthHigh:
		return c.Points.High, nil
	case models.StrengthMedium:
		return c.Points.Medium, nil
	case models.StrengthLow:
		return c.Points.Low, nil
	}
	return 0, fmt.Errorf("unknown strength %q", s)
}

func (c ScoringConfig) isRecent(observedAt, now time.Time) bool {
	if observedAt.IsZero() {
		return false
	}
	return now.Sub(observedAt) <= c.RecencyWindow()
}

// EvidenceText renders an item as "[<STRENGTH>] <notes> (<date>)". The text
// is reported verbatim as a reason.
func EvidenceText(e models.Evidence) string {
	date := "undated"
	if !e.ObservedAt.IsZero() {
		date = e.ObservedAt.UTC().Format(evidenceDateLayout)
	}
	return fmt.Sprintf("[%s] %s (%s)", e.Strength, strings.TrimSpace(e.Notes), date)
}
