package model

import "time"

type Timeframe string

const (
	TimeframeM5  Timeframe = "5m"
	TimeframeM15 Timeframe = "15m"
	TimeframeH1  Timeframe = "1h"
	TimeframeD1  Timeframe = "1d"
)

// BarDuration returns the wall-clock length of one bar, zero when unknown.
func (tf Timeframe) BarDuration() time.Duration {
	switch tf {
	case TimeframeM5:
		return 5 * time.Minute
	case TimeframeM15:
		return 15 * time.Minute
	case TimeframeH1:
		return time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	default:
		return 0
	}
}

// BarsBetween counts whole bars elapsed between from and to.
func (tf Timeframe) BarsBetween(from, to time.Time) int {
	d := tf.BarDuration()
	if d <= 0 || from.IsZero() || to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / d)
}
