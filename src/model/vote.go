package model

// TimeframeVote is the weighted indicator tally for one timeframe at one tick.
type TimeframeVote struct {
	ScoreLong      float64            `json:"score_long"`
	ScoreShort     float64            `json:"score_short"`
	BreakdownLong  map[string]float64 `json:"breakdown_long,omitempty"`
	BreakdownShort map[string]float64 `json:"breakdown_short,omitempty"`
}

func (v TimeframeVote) Side() Side { return DecideSide(v.ScoreLong, v.ScoreShort) }

// Score is the score of the winning side, zero when NEUTRAL.
func (v TimeframeVote) Score() float64 {
	switch v.Side() {
	case SideLong:
		return v.ScoreLong
	case SideShort:
		return v.ScoreShort
	default:
		return 0
	}
}

// Breakdown returns the per-indicator contributions of the winning side.
func (v TimeframeVote) Breakdown() map[string]float64 {
	switch v.Side() {
	case SideLong:
		return v.BreakdownLong
	case SideShort:
		return v.BreakdownShort
	default:
		return nil
	}
}
