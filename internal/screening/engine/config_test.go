package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/screening/engine"
)

func TestDefaultConfig(t *testing.T) {
	cfg := engine.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, engine.Points{High: 10, Medium: 6, Low: 2}, cfg.Scoring.Points)
	assert.Equal(t, 2, cfg.Scoring.RecencyBonus)
	assert.Equal(t, 730, cfg.Scoring.RecencyWindowDays)
	assert.Equal(t, 3, cfg.Scoring.VolumeReviewCount)
	assert.Equal(t, engine.Threshold{ExcludeAt: 7, ReviewAt: 3}, cfg.Scoring.DefaultThreshold)
	assert.Nil(t, cfg.Scoring.BDSThresholds.Other)
	assert.Equal(t, 15.0, cfg.LookThrough.ExcludeWeight)
	assert.Equal(t, int64(1_000_000_000), cfg.Defense.MajorContractorUSD)

	t.Run("each call returns an independent copy", func(t *testing.T) {
		a := engine.DefaultConfig()
		a.Scoring.BDSThresholds.SettlementEnterprise.ExcludeAt = 99
		b := engine.DefaultConfig()
		assert.Equal(t, 8, b.Scoring.BDSThresholds.SettlementEnterprise.ExcludeAt)
	})
}

func TestLoadConfig(t *testing.T) {
	write := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "engine.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := engine.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, engine.DefaultConfig(), cfg)
	})

	t.Run("overlay keeps unspecified keys", func(t *testing.T) {
		cfg, err := engine.LoadConfig(write(t, "scoring:\n  volume_review_count: 5\nlook_through:\n  exclude_weight: 20\n"))
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Scoring.VolumeReviewCount)
		assert.Equal(t, 20.0, cfg.LookThrough.ExcludeWeight)
		assert.Equal(t, 10, cfg.Scoring.Points.High)
		assert.Equal(t, 5.0, cfg.LookThrough.ExcludeReviewWeight)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := engine.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		_, err := engine.LoadConfig(write(t, "scoring: [unclosed"))
		require.Error(t, err)
	})

	t.Run("inverted threshold is rejected", func(t *testing.T) {
		_, err := engine.LoadConfig(write(t, "scoring:\n  default_threshold:\n    exclude_at: 3\n    review_at: 7\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "review_at")
	})

	t.Run("negative points are rejected", func(t *testing.T) {
		_, err := engine.LoadConfig(write(t, "scoring:\n  points:\n    low: -1\n"))
		require.Error(t, err)
	})
}
