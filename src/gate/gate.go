package gate

import (
	"fmt"

	"signalengine/src/model"
)

// Thresholds are the minimums every clause of the gate is compared against.
type Thresholds struct {
	M15ScoreMin   float64
	H1ScoreMin    float64
	HeavyRequired int
	ADXMin        float64
}

// Input is everything the gate needs for one symbol at one tick.
type Input struct {
	M5        model.TimeframeVote
	M15       model.TimeframeVote
	H1        model.TimeframeVote
	HeavyHits int
	ADXH1     float64
}

// Evaluate combines the three horizons into a pass/fail decision.
// The M15 side is reported even when the gate fails.
func Evaluate(in Input, th Thresholds) model.GateResult {
	m5Side := in.M5.Side()
	m15Side := in.M15.Side()
	h1Side := in.H1.Side()

	res := model.GateResult{
		Side:      m15Side,
		M5Side:    m5Side,
		H1Side:    h1Side,
		M15Score:  in.M15.Score(),
		H1Score:   in.H1.Score(),
		HeavyHits: in.HeavyHits,
		ADXH1:     in.ADXH1,
	}

	if !m15Side.IsDirectional() || m5Side != m15Side || h1Side != m15Side {
		res.Failures = append(res.Failures,
			fmt.Sprintf("sides_disagree m5=%s m15=%s h1=%s", m5Side, m15Side, h1Side))
	}
	if res.M15Score < th.M15ScoreMin {
		res.Failures = append(res.Failures, fmt.Sprintf("m15_score %.2f < %.2f", res.M15Score, th.M15ScoreMin))
	}
	if res.H1Score < th.H1ScoreMin {
		res.Failures = append(res.Failures, fmt.Sprintf("h1_score %.2f < %.2f", res.H1Score, th.H1ScoreMin))
	}
	if in.HeavyHits < th.HeavyRequired {
		res.Failures = append(res.Failures, fmt.Sprintf("heavy_hits %d < %d", in.HeavyHits, th.HeavyRequired))
	}
	if in.ADXH1 < th.ADXMin {
		res.Failures = append(res.Failures, fmt.Sprintf("adx_h1 %.2f < %.2f", in.ADXH1, th.ADXMin))
	}

	res.Passed = len(res.Failures) == 0
	return res
}
