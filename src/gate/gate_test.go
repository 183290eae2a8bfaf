package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/model"
)

var th = Thresholds{M15ScoreMin: 15, H1ScoreMin: 8, HeavyRequired: 3, ADXMin: 25}

func long(score float64) model.TimeframeVote {
	return model.TimeframeVote{ScoreLong: score, ScoreShort: 1}
}
func short(score float64) model.TimeframeVote {
	return model.TimeframeVote{ScoreLong: 1, ScoreShort: score}
}

func TestEvaluate_AllClausesPass(t *testing.T) {
	res := Evaluate(Input{M5: long(10), M15: long(16), H1: long(9), HeavyHits: 3, ADXH1: 25}, th)

	assert.True(t, res.Passed)
	assert.Empty(t, res.Failures)
	assert.Equal(t, model.SideLong, res.Side)
	assert.Equal(t, 16.0, res.M15Score)
	assert.Equal(t, 9.0, res.H1Score)
}

func TestEvaluate_ShortSide(t *testing.T) {
	res := Evaluate(Input{M5: short(10), M15: short(20), H1: short(12), HeavyHits: 4, ADXH1: 30}, th)

	assert.True(t, res.Passed)
	assert.Equal(t, model.SideShort, res.Side)
	assert.Equal(t, 20.0, res.M15Score)
}

func TestEvaluate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		failure string
		side    model.Side
	}{
		{
			name:    "m5 disagrees",
			in:      Input{M5: short(10), M15: long(16), H1: long(9), HeavyHits: 3, ADXH1: 25},
			failure: "sides_disagree",
			side:    model.SideLong,
		},
		{
			name:    "all neutral",
			in:      Input{M5: model.TimeframeVote{}, M15: model.TimeframeVote{ScoreLong: 5, ScoreShort: 5.05}, H1: model.TimeframeVote{}, HeavyHits: 3, ADXH1: 25},
			failure: "sides_disagree",
			side:    model.SideNeutral,
		},
		{
			name:    "m15 score below",
			in:      Input{M5: long(10), M15: long(14.99), H1: long(9), HeavyHits: 3, ADXH1: 25},
			failure: "m15_score",
			side:    model.SideLong,
		},
		{
			name:    "h1 score below",
			in:      Input{M5: long(10), M15: long(16), H1: long(7), HeavyHits: 3, ADXH1: 25},
			failure: "h1_score",
			side:    model.SideLong,
		},
		{
			name:    "not enough heavy hits",
			in:      Input{M5: long(10), M15: long(16), H1: long(9), HeavyHits: 2, ADXH1: 25},
			failure: "heavy_hits",
			side:    model.SideLong,
		},
		{
			name:    "weak trend",
			in:      Input{M5: long(10), M15: long(16), H1: long(9), HeavyHits: 3, ADXH1: 24.9},
			failure: "adx_h1",
			side:    model.SideLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.in, th)
			assert.False(t, res.Passed)
			require.NotEmpty(t, res.Failures)
			assert.Contains(t, res.Failures[0], tt.failure)
			assert.Equal(t, tt.side, res.Side)
		})
	}
}

func TestEvaluate_ReportsEveryFailedClause(t *testing.T) {
	res := Evaluate(Input{M5: short(1.5), M15: long(2), H1: long(2), HeavyHits: 0, ADXH1: 10}, th)

	assert.False(t, res.Passed)
	assert.Len(t, res.Failures, 5)
}
