package engine

import "screener/internal/screening/models"

// EstimateConfidence derives a policy's confidence from evidence volume,
// strength mix and how many categories were flagged.
//
// evidence is the flattened evidence of the categories actually scored. No
// evidence at all is a confident clean result.
func EstimateConfidence(cfg ConfidenceConfig, evidence []models.Evidence, categories []models.CategoryStatus) models.Confidence {
	if len(evidence) == 0 {
		return models.ConfidenceHigh
	}

	score := 0
	for _, e := range evidence {
		switch e.Strength {
		case models.StrengthHigh:
			score += cfg.HighStrengthWeight
		case models.StrengthMedium:
			score += cfg.MediumStrengthWeight
		}
	}
	score += cfg.ItemWeight * len(evidence)

	total := 0
	for _, c := range categories {
		if c.Status != models.StatusPass {
			score += cfg.NonPassCategoryWeight
		}
		total += c.Score
	}
	// bands are ordered highest first; the first match wins
	for _, band := range cfg.ScoreBands {
		if total > band.Above {
			score += band.Bonus
			break
		}
	}

	switch {
	case score >= cfg.HighAt:
		return models.ConfidenceHigh
	case score >= cfg.MediumAt:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
