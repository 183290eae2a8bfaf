package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"signalengine/src/indicators"
)

// Strategy is the full strategy file after defaults and the profile overlay.
type Strategy struct {
	Symbols    []string   `yaml:"symbols" validate:"required,min=1,dive,required"`
	Thresholds Thresholds `yaml:"thresholds"`
	TightMode  TightMode  `yaml:"tight_mode"`
	Trading    Trading    `yaml:"trading"`
	Risk       Risk       `yaml:"risk"`
	Scheduler  Scheduler  `yaml:"scheduler"`
	Dedup      Dedup      `yaml:"dedup"`
	Advisor    Advisor    `yaml:"advisor"`
	SignalPlan SignalPlan `yaml:"signal_plan"`

	ADXH1Threshold                  float64        `yaml:"adx_h1_threshold" validate:"gte=0,lte=100"`
	ProbeEarlySizeRatio             float64        `yaml:"probe_early_size_ratio" validate:"gte=0,lte=1"`
	PromotePullbackATR              float64        `yaml:"promote_pullback_atr" validate:"gt=0"`
	AutoCloseOnWarningIfPnLPositive bool           `yaml:"auto_close_on_warning_if_pnl_positive"`
	TrailingSteps                   []TrailingStep `yaml:"trailing_steps" validate:"dive"`

	// WeightsSets maps a timeframe ("M5", "M15", "H1") to per-indicator vote weights.
	WeightsSets map[string]map[string]float64 `yaml:"weights_sets"`

	ActiveProfile string               `yaml:"active_profile"`
	Profiles      map[string]yaml.Node `yaml:"profiles"`
}

type Thresholds struct {
	M15 float64 `yaml:"M15" validate:"gte=0"`
	H1  float64 `yaml:"H1" validate:"gte=0"`
}

type TightMode struct {
	HeavyRequired         int `yaml:"heavy_required" validate:"gte=0"`
	SnapshotConfirmations int `yaml:"snapshot_confirmations" validate:"gte=1"`
	CooldownM15Min        int `yaml:"cooldown_m15_min" validate:"gte=0"`
	MinGapSec             int `yaml:"min_gap_sec" validate:"gte=0"`
}

type Trading struct {
	Capital     float64 `yaml:"capital" validate:"gt=0"`
	Leverage    float64 `yaml:"leverage" validate:"gte=1"`
	FeeBps      float64 `yaml:"fee_bps" validate:"gte=0"`
	ProbePct    float64 `yaml:"probe_pct" validate:"gt=0,lte=1"`
	FullPct     float64 `yaml:"full_pct" validate:"gt=0,lte=1"`
	MaxHoldBars int     `yaml:"max_hold_bars" validate:"gte=1"`
}

type Risk struct {
	MinNotional float64 `yaml:"min_notional" validate:"gte=0"`
}

type Scheduler struct {
	IntervalSec  int `yaml:"interval_sec" validate:"gte=1"`
	ReportHour   int `yaml:"report_hour" validate:"gte=0,lte=23"`
	ReportMinute int `yaml:"report_minute" validate:"gte=0,lte=59"`
}

type Dedup struct {
	MinDiffPct float64 `yaml:"min_diff_pct" validate:"gte=0"`
}

type Advisor struct {
	WeakADX     float64 `yaml:"weak_adx" validate:"gte=0"`
	RSILow      float64 `yaml:"rsi_low" validate:"gte=0,lte=100"`
	RSIHigh     float64 `yaml:"rsi_high" validate:"gte=0,lte=100,gtefield=RSILow"`
	MaxHoldBars int     `yaml:"max_hold_bars" validate:"gte=1"`
}

type SignalPlan struct {
	SLATR float64 `yaml:"sl_atr" validate:"gt=0"`
	TPR   float64 `yaml:"tp_r" validate:"gt=0"`
}

type TrailingStep struct {
	ROI  float64 `yaml:"roi" validate:"gt=0"`
	Lock float64 `yaml:"lock" validate:"gte=0"`
}

// Default returns the built-in strategy used for every key the file omits.
func Default() *Strategy {
	return &Strategy{
		Symbols:    []string{"BTC/USDT"},
		Thresholds: Thresholds{M15: 15, H1: 8},
		TightMode: TightMode{
			HeavyRequired:         3,
			SnapshotConfirmations: 2,
			CooldownM15Min:        15,
			MinGapSec:             30,
		},
		Trading: Trading{
			Capital:     100,
			Leverage:    10,
			FeeBps:      4,
			ProbePct:    0.1,
			FullPct:     0.5,
			MaxHoldBars: 12,
		},
		Risk:       Risk{MinNotional: 5},
		Scheduler:  Scheduler{IntervalSec: 60, ReportHour: 23, ReportMinute: 59},
		Dedup:      Dedup{MinDiffPct: 0.3},
		Advisor:    Advisor{WeakADX: 16, RSILow: 45, RSIHigh: 55, MaxHoldBars: 12},
		SignalPlan: SignalPlan{SLATR: 1.5, TPR: 2},

		ADXH1Threshold:                  25,
		ProbeEarlySizeRatio:             0.08,
		PromotePullbackATR:              0.5,
		AutoCloseOnWarningIfPnLPositive: true,
		TrailingSteps:                   []TrailingStep{{ROI: 0.03, Lock: 0.002}},
		WeightsSets:                     DefaultWeights(),
	}
}

// DefaultWeights is the vote weight set used when the file has no weights_sets.
func DefaultWeights() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"M15": {
			indicators.SignalEMA:    3,
			indicators.SignalMACD:   2.5,
			indicators.SignalEMA200: 2.5,
			indicators.SignalRSI:    2,
			indicators.SignalADX:    2,
			indicators.SignalMA50:   2,
			indicators.SignalStoch:  2,
			indicators.SignalVolume: 1.5,
			indicators.SignalBB:     1.5,
		},
		"H1": {
			indicators.SignalEMA:    3,
			indicators.SignalMACD:   2,
			indicators.SignalADX:    2,
			indicators.SignalMA50:   1.5,
			indicators.SignalEMA200: 1.5,
			indicators.SignalRSI:    1.5,
			indicators.SignalStoch:  1,
			indicators.SignalBB:     0.5,
		},
	}
}

// MaxScore is the score of timeframe tf ("M5", "M15", "H1") when every
// indicator votes for the same side. M5 falls back to the M15 set and an
// empty set weighs every indicator at 1.
func (s *Strategy) MaxScore(tf string) float64 {
	set, ok := s.WeightsSets[tf]
	if !ok && tf == "M5" {
		set = s.WeightsSets["M15"]
	}
	if len(set) == 0 {
		return float64(len(indicators.SignalNames))
	}
	var total float64
	for name, w := range set {
		if w > 0 && indicators.IsSignal(name) {
			total += w
		}
	}
	return total
}

// checkWeights rejects weight keys no indicator votes on and thresholds the
// weights can never reach.
func (s *Strategy) checkWeights() error {
	for tf, set := range s.WeightsSets {
		switch tf {
		case "M5", "M15", "H1":
		default:
			return fmt.Errorf("weights_sets: unknown timeframe %q", tf)
		}
		var unknown []string
		for name := range set {
			if !indicators.IsSignal(name) {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			return fmt.Errorf("weights_sets.%s: unknown indicators %s (known: %s)",
				tf, strings.Join(unknown, ", "), strings.Join(indicators.SignalNames, ", "))
		}
	}
	if top := s.MaxScore("M15"); s.Thresholds.M15 > top {
		return fmt.Errorf("thresholds.M15 %.2f is above the highest reachable M15 score %.2f", s.Thresholds.M15, top)
	}
	if top := s.MaxScore("H1"); s.Thresholds.H1 > top {
		return fmt.Errorf("thresholds.H1 %.2f is above the highest reachable H1 score %.2f", s.Thresholds.H1, top)
	}
	return nil
}

func (s *Strategy) Interval() time.Duration {
	return time.Duration(s.Scheduler.IntervalSec) * time.Second
}

// TickTimeout is the per-tick budget: interval minus a 5s margin, never below 5s.
func (s *Strategy) TickTimeout() time.Duration {
	timeout := s.Interval() - 5*time.Second
	if timeout < 5*time.Second {
		timeout = 5 * time.Second
	}
	return timeout
}

func (s *Strategy) EntryMinInterval() time.Duration {
	return time.Duration(s.TightMode.CooldownM15Min) * time.Minute
}

func (s *Strategy) MinGap() time.Duration {
	return time.Duration(s.TightMode.MinGapSec) * time.Second
}
