package indicators

import (
	"fmt"

	"signalengine/src/model"
)

// Analysis is everything the engine needs from one symbol's candles at one tick.
type Analysis struct {
	Votes     map[model.Timeframe]model.TimeframeVote
	Snapshots map[model.Timeframe]Snapshot
	HeavyHits int
	ADXH1     float64
	TrendH1   string
	TrendD1   string
}

// Analyzer turns candle series into weighted votes. Weights are keyed by
// timeframe label (M5, M15, H1); M5 falls back to the M15 set.
type Analyzer struct {
	Weights map[string]map[string]float64
}

func NewAnalyzer(weights map[string]map[string]float64) *Analyzer {
	return &Analyzer{Weights: weights}
}

func (a *Analyzer) weightsFor(tf model.Timeframe) map[string]float64 {
	switch tf {
	case model.TimeframeM5:
		if w, ok := a.Weights["M5"]; ok {
			return w
		}
		return a.Weights["M15"]
	case model.TimeframeM15:
		return a.Weights["M15"]
	case model.TimeframeH1:
		return a.Weights["H1"]
	default:
		return nil
	}
}

func (a *Analyzer) Analyze(series map[model.Timeframe][]model.Candle) (*Analysis, error) {
	out := &Analysis{
		Votes:     make(map[model.Timeframe]model.TimeframeVote, 3),
		Snapshots: make(map[model.Timeframe]Snapshot, 4),
	}
	for _, tf := range []model.Timeframe{model.TimeframeM5, model.TimeframeM15, model.TimeframeH1, model.TimeframeD1} {
		snap, err := ComputeSnapshot(series[tf])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tf, err)
		}
		out.Snapshots[tf] = snap
		if tf != model.TimeframeD1 {
			out.Votes[tf] = Tally(Signals(snap), a.weightsFor(tf))
		}
	}

	h1 := out.Snapshots[model.TimeframeH1]
	out.HeavyHits = HeavyHits(h1, out.Votes[model.TimeframeM15].Side())
	out.ADXH1 = h1.ADX
	out.TrendH1 = h1.Trend
	out.TrendD1 = out.Snapshots[model.TimeframeD1].Trend
	return out, nil
}
