package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/indicators"
	"signalengine/src/model"
)

const baseYAML = `
symbols: [BTC/USDT, ETH/USDT]
thresholds:
  M15: 15
  H1: 8
tight_mode:
  heavy_required: 3
  snapshot_confirmations: 2
active_profile: medium
profiles:
  medium:
    thresholds:
      M15: 12
  strict:
    thresholds:
      H1: 11
    tight_mode:
      heavy_required: 5
    scheduler:
      interval_sec: 120
    adx_h1_threshold: 30
`

func TestParse_DefaultsFillMissingKeys(t *testing.T) {
	s, err := Parse([]byte("symbols: [BTCUSDT]\n"), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT"}, s.Symbols)
	assert.Equal(t, 100.0, s.Trading.Capital)
	assert.Equal(t, 10.0, s.Trading.Leverage)
	assert.Equal(t, 0.3, s.Dedup.MinDiffPct)
	assert.Equal(t, 30, s.TightMode.MinGapSec)
	assert.Equal(t, []TrailingStep{{ROI: 0.03, Lock: 0.002}}, s.TrailingSteps)
	assert.True(t, s.AutoCloseOnWarningIfPnLPositive)
}

func TestParse_ActiveProfileOverlay(t *testing.T) {
	s, err := Parse([]byte(baseYAML), "")
	require.NoError(t, err)

	assert.Equal(t, "medium", s.ActiveProfile)
	assert.Equal(t, 12.0, s.Thresholds.M15)
	// keys absent from the profile keep the base value
	assert.Equal(t, 8.0, s.Thresholds.H1)
	assert.Equal(t, 3, s.TightMode.HeavyRequired)
}

func TestParse_ProfileArgumentOverridesFile(t *testing.T) {
	s, err := Parse([]byte(baseYAML), "strict")
	require.NoError(t, err)

	assert.Equal(t, "strict", s.ActiveProfile)
	assert.Equal(t, 15.0, s.Thresholds.M15)
	assert.Equal(t, 11.0, s.Thresholds.H1)
	assert.Equal(t, 5, s.TightMode.HeavyRequired)
	assert.Equal(t, 2, s.TightMode.SnapshotConfirmations)
	assert.Equal(t, 120, s.Scheduler.IntervalSec)
	assert.Equal(t, 30.0, s.ADXH1Threshold)
}

func TestParse_UnknownProfile(t *testing.T) {
	_, err := Parse([]byte(baseYAML), "yolo")
	require.ErrorIs(t, err, ErrUnknownProfile)
}

func TestParse_ValidationFails(t *testing.T) {
	_, err := Parse([]byte("symbols: [BTCUSDT]\ntrading:\n  probe_pct: 1.5\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProbePct")
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte("symbols: [BTCUSDT]\nthreshold: {M15: 1}\n"), "")
	require.Error(t, err)
}

func TestTickTimeout(t *testing.T) {
	s := Default()

	s.Scheduler.IntervalSec = 60
	assert.Equal(t, 55*time.Second, s.TickTimeout())

	s.Scheduler.IntervalSec = 8
	assert.Equal(t, 5*time.Second, s.TickTimeout())
}

func TestLoadFile_RepositoryStrategy(t *testing.T) {
	path := filepath.Join("..", "..", "config", "strategy.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("strategy.yaml not found")
	}

	s, err := LoadFile(path, "test_soft")
	require.NoError(t, err)
	assert.Equal(t, 1, s.TightMode.SnapshotConfirmations)
	assert.Equal(t, 30, s.Scheduler.IntervalSec)
	assert.NotEmpty(t, s.WeightsSets["M15"])
}

func TestParse_UnknownWeightKeyRejected(t *testing.T) {
	_, err := Parse([]byte("symbols: [BTCUSDT]\nweights_sets:\n  M15: {EMA: 3, ICHIMOKU: 2}\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ICHIMOKU")

	_, err = Parse([]byte("symbols: [BTCUSDT]\nweights_sets:\n  H4: {EMA: 3}\n"), "")
	require.Error(t, err)
}

func TestParse_UnreachableThresholdRejected(t *testing.T) {
	raw := "symbols: [BTCUSDT]\nthresholds: {M15: 6, H1: 1}\nweights_sets:\n  M15: {EMA: 3, MACD: 2}\n"
	_, err := Parse([]byte(raw), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds.M15")

	raw = "symbols: [BTCUSDT]\nthresholds: {M15: 5, H1: 1}\nweights_sets:\n  M15: {EMA: 3, MACD: 2}\n"
	_, err = Parse([]byte(raw), "")
	require.NoError(t, err)
}

func TestMaxScore(t *testing.T) {
	s := Default()
	assert.Equal(t, 19.0, s.MaxScore("M15"))
	assert.Equal(t, 13.0, s.MaxScore("H1"))
	// M5 votes with the M15 set
	assert.Equal(t, 19.0, s.MaxScore("M5"))

	s.WeightsSets = nil
	assert.Equal(t, float64(len(indicators.SignalNames)), s.MaxScore("H1"))
}

// Every profile of the shipped file must leave the gate passable when all
// indicators agree.
func TestLoadFile_EveryProfileCanPassGate(t *testing.T) {
	path := filepath.Join("..", "..", "config", "strategy.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("strategy.yaml not found")
	}
	base, err := LoadFile(path, "")
	require.NoError(t, err)
	require.NotEmpty(t, base.Profiles)

	allLong := make(map[string]model.Side, len(indicators.SignalNames))
	for _, name := range indicators.SignalNames {
		allLong[name] = model.SideLong
	}

	for name := range base.Profiles {
		s, err := LoadFile(path, name)
		require.NoError(t, err, name)

		m15 := indicators.Tally(allLong, s.WeightsSets["M15"]).Score()
		h1 := indicators.Tally(allLong, s.WeightsSets["H1"]).Score()
		assert.GreaterOrEqual(t, m15, s.Thresholds.M15, "profile %s M15", name)
		assert.GreaterOrEqual(t, h1, s.Thresholds.H1, "profile %s H1", name)
		for tf, set := range s.WeightsSets {
			for key := range set {
				assert.True(t, indicators.IsSignal(key), "profile %s %s weight %s", name, tf, key)
			}
		}
	}
}
