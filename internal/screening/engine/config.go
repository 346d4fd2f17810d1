package engine

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"screener/internal/screening/models"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Threshold is an (excludeAt, reviewAt) score pair.
type Threshold struct {
	ExcludeAt int `yaml:"exclude_at"`
	ReviewAt  int `yaml:"review_at"`
}

// Points are the base contribution of one evidence item by strength.
type Points struct {
	High   int `yaml:"high"`
	Medium int `yaml:"medium"`
	Low    int `yaml:"low"`
}

// BDSThresholds holds per-category overrides. A nil entry falls back to the
// default threshold.
type BDSThresholds struct {
	EconomicExploitation  *Threshold `yaml:"economic_exploitation"`
	OccupiedResources     *Threshold `yaml:"exploitation_of_occupied_resources"`
	SettlementEnterprise  *Threshold `yaml:"settlement_enterprise"`
	Construction          *Threshold `yaml:"construction_on_occupied_land"`
	ServicesToSettlements *Threshold `yaml:"services_to_settlements"`
	Other                 *Threshold `yaml:"other_bds_activities"`
}

type ScoringConfig struct {
	Points            Points        `yaml:"points"`
	RecencyBonus      int           `yaml:"recency_bonus"`
	RecencyWindowDays int           `yaml:"recency_window_days"`
	VolumeReviewCount int           `yaml:"volume_review_count"`
	DefaultThreshold  Threshold     `yaml:"default_threshold"`
	BDSThresholds     BDSThresholds `yaml:"bds_thresholds"`
}

// RecencyWindow is the look-back period that earns the recency bonus.
func (c ScoringConfig) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyWindowDays) * 24 * time.Hour
}

// ScoreBand adds Bonus when the summed category score is strictly above Above.
type ScoreBand struct {
	Above int `yaml:"above"`
	Bonus int `yaml:"bonus"`
}

type ConfidenceConfig struct {
	HighStrengthWeight    int         `yaml:"high_strength_weight"`
	MediumStrengthWeight  int         `yaml:"medium_strength_weight"`
	ItemWeight            int         `yaml:"item_weight"`
	NonPassCategoryWeight int         `yaml:"non_pass_category_weight"`
	ScoreBands            []ScoreBand `yaml:"score_bands"`
	HighAt                int         `yaml:"high_at"`
	MediumAt              int         `yaml:"medium_at"`
}

// LookThroughConfig holds basket exposure thresholds, in percent of basket.
type LookThroughConfig struct {
	ExcludeWeight       float64 `yaml:"exclude_weight"`
	ExcludeReviewWeight float64 `yaml:"exclude_review_weight"`
	ReviewWeight        float64 `yaml:"review_weight"`
	MaxOffenders        int     `yaml:"max_offenders"`
	HighCoverage        float64 `yaml:"high_coverage"`
	MediumCoverage      float64 `yaml:"medium_coverage"`
}

// ShariahConfig holds the financial ratio ceilings, as fractions.
type ShariahConfig struct {
	MaxDebtRatio                float64 `yaml:"max_debt_ratio"`
	MaxCashRatio                float64 `yaml:"max_cash_ratio"`
	MaxReceivablesRatio         float64 `yaml:"max_receivables_ratio"`
	MaxImpermissibleIncomeRatio float64 `yaml:"max_impermissible_income_ratio"`
}

// DefenseConfig holds contract-award thresholds in whole US dollars.
type DefenseConfig struct {
	MajorContractorUSD  int64 `yaml:"major_contractor_usd"`
	ContractorReviewUSD int64 `yaml:"contractor_review_usd"`
}

// Config is the immutable rule table passed to every engine function. Build
// it with DefaultConfig or LoadConfig and pass it by value.
type Config struct {
	Scoring     ScoringConfig     `yaml:"scoring"`
	Confidence  ConfidenceConfig  `yaml:"confidence"`
	LookThrough LookThroughConfig `yaml:"look_through"`
	Shariah     ShariahConfig     `yaml:"shariah"`
	Defense     DefenseConfig     `yaml:"defense"`
}

// DefaultConfig returns a fresh copy of the embedded defaults.
func DefaultConfig() Config {
	cfg, err := parseConfig(defaultsYAML, Config{})
	if err != nil {
		panic(fmt.Sprintf("embedded engine defaults are invalid: %v", err))
	}
	return cfg
}

// LoadConfig overlays the YAML file at path onto the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	base := DefaultConfig()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read engine config: %w", err)
	}
	return parseConfig(raw, base)
}

func parseConfig(raw []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects rule tables that would make scoring inconsistent.
func (c Config) Validate() error {
	p := c.Scoring.Points
	if p.High < 0 || p.Medium < 0 || p.Low < 0 || c.Scoring.RecencyBonus < 0 {
		return fmt.Errorf("scoring points must not be negative")
	}
	if c.Scoring.RecencyWindowDays < 0 {
		return fmt.Errorf("recency window must not be negative")
	}
	if err := c.Scoring.DefaultThreshold.validate("default"); err != nil {
		return err
	}
	for _, cat := range models.AllBDSCategories {
		if t := c.Scoring.BDSThresholds.lookup(cat); t != nil {
			if err := t.validate(string(cat)); err != nil {
				return err
			}
		}
	}
	if c.Confidence.MediumAt > c.Confidence.HighAt {
		return fmt.Errorf("confidence medium_at (%d) exceeds high_at (%d)", c.Confidence.MediumAt, c.Confidence.HighAt)
	}
	lt := c.LookThrough
	if lt.ExcludeReviewWeight > lt.ExcludeWeight {
		return fmt.Errorf("look_through exclude_review_weight exceeds exclude_weight")
	}
	if lt.MaxOffenders < 0 {
		return fmt.Errorf("look_through max_offenders must not be negative")
	}
	if c.Defense.ContractorReviewUSD > c.Defense.MajorContractorUSD {
		return fmt.Errorf("defense contractor_review_usd exceeds major_contractor_usd")
	}
	return nil
}

func (t Threshold) validate(name string) error {
	if t.ReviewAt < 0 || t.ExcludeAt <= 0 {
		return fmt.Errorf("threshold %s must be positive", name)
	}
	if t.ReviewAt > t.ExcludeAt {
		return fmt.Errorf("threshold %s: review_at (%d) exceeds exclude_at (%d)", name, t.ReviewAt, t.ExcludeAt)
	}
	return nil
}

// lookup names every category explicitly. A new BDSCategory needs a case
// here and a field above.
func (b BDSThresholds) lookup(c models.BDSCategory) *Threshold {
	switch c {
	case models.BDSEconomicExploitation:
		return b.EconomicExploitation
	case models.BDSOccupiedResources:
		return b.OccupiedResources
	case models.BDSSettlementEnterprise:
		return b.SettlementEnterprise
	case models.BDSConstruction:
		return b.Construction
	case models.BDSServicesToSettlements:
		return b.ServicesToSettlements
	case models.BDSOther:
		return b.Other
	}
	return nil
}

// ThresholdFor resolves the threshold pair for a group key.
func (c ScoringConfig) ThresholdFor(key models.CategoryKey) Threshold {
	if cat, ok := key.BDS(); ok {
		if t := c.BDSThresholds.lookup(cat); t != nil {
			return *t
		}
	}
	return c.DefaultThreshold
}
