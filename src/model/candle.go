package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar in ascending chronological order inside a series.
type Candle struct {
	Datetime time.Time       `json:"datetime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

func (c Candle) IsBullish() bool { return c.Close.GreaterThan(c.Open) }
func (c Candle) IsBearish() bool { return c.Close.LessThan(c.Open) }

// Direction is LONG for a bullish body and SHORT otherwise (a doji counts as SHORT).
func (c Candle) Direction() Side {
	if c.IsBullish() {
		return SideLong
	}
	return SideShort
}

// Last returns the most recent candle.
func Last(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}

// AvgVolume is the mean volume of the last n candles, including the latest one.
// ok is false when fewer than n candles are available.
func AvgVolume(candles []Candle, n int) (avg decimal.Decimal, ok bool) {
	if n <= 0 || len(candles) < n {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, c := range candles[len(candles)-n:] {
		sum = sum.Add(c.Volume)
	}
	return sum.Div(decimal.NewFromInt(int64(n))), true
}
