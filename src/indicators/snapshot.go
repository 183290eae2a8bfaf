package indicators

import (
	"errors"
	"fmt"

	"signalengine/src/model"
)

var ErrInsufficientData = errors.New("insufficient data")

const (
	TrendUp       = "UP"
	TrendDown     = "DOWN"
	TrendSideways = "SIDEWAYS"
)

// Snapshot holds the latest value of every series for one timeframe.
type Snapshot struct {
	Open        float64 `json:"open"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	AvgVolume20 float64 `json:"avg_volume_20"`
	ATR         float64 `json:"atr"`
	MA50        float64 `json:"ma50"`
	EMA20       float64 `json:"ema20"`
	EMA50       float64 `json:"ema50"`
	EMA200      float64 `json:"ema200"`
	RSI         float64 `json:"rsi"`
	ADX         float64 `json:"adx"`
	PlusDI      float64 `json:"plus_di"`
	MinusDI     float64 `json:"minus_di"`
	MACDHist    float64 `json:"macd_hist"`
	StochK      float64 `json:"stoch_k"`
	StochD      float64 `json:"stoch_d"`
	BBUpper     float64 `json:"bb_upper"`
	BBMid       float64 `json:"bb_mid"`
	BBLower     float64 `json:"bb_lower"`
	Trend       string  `json:"trend"`
}

// ComputeSnapshot evaluates all series over candles. Any series without a
// value on the last bar is an error, never a silent zero.
func ComputeSnapshot(candles []model.Candle) (Snapshot, error) {
	if len(candles) < 200 {
		return Snapshot{}, fmt.Errorf("%w: %d bars, need 200", ErrInsufficientData, len(candles))
	}
	closes := Closes(candles)
	highs := Highs(candles)
	lows := Lows(candles)
	volumes := Volumes(candles)
	last := candles[len(candles)-1]

	adx, plusDI, minusDI := DMI(highs, lows, closes, 14)
	stochK, stochD := Stochastic(highs, lows, closes, 14, 3)
	bbMid, bbUpper, bbLower := Bollinger(closes, 20, 2)

	s := Snapshot{
		Open:   last.Open.InexactFloat64(),
		Close:  last.Close.InexactFloat64(),
		Volume: last.Volume.InexactFloat64(),
	}
	series := []struct {
		name string
		x    []float64
		dst  *float64
	}{
		{"avg_volume_20", SMA(volumes, 20), &s.AvgVolume20},
		{"atr", ATR(highs, lows, closes, 14), &s.ATR},
		{"ma50", SMA(closes, 50), &s.MA50},
		{"ema20", EMA(closes, 20), &s.EMA20},
		{"ema50", EMA(closes, 50), &s.EMA50},
		{"ema200", EMA(closes, 200), &s.EMA200},
		{"rsi", RSI(closes, 14), &s.RSI},
		{"adx", adx, &s.ADX},
		{"plus_di", plusDI, &s.PlusDI},
		{"minus_di", minusDI, &s.MinusDI},
		{"macd_hist", MACDHist(closes, 12, 26, 9), &s.MACDHist},
		{"stoch_k", stochK, &s.StochK},
		{"stoch_d", stochD, &s.StochD},
		{"bb_mid", bbMid, &s.BBMid},
		{"bb_upper", bbUpper, &s.BBUpper},
		{"bb_lower", bbLower, &s.BBLower},
	}
	for _, sr := range series {
		v, ok := LastValid(sr.x)
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: %s has no value on the last bar", ErrInsufficientData, sr.name)
		}
		*sr.dst = v
	}
	s.Trend = trendLabel(s)
	return s, nil
}

func trendLabel(s Snapshot) string {
	switch {
	case s.Close > s.EMA50 && s.EMA50 > s.EMA200:
		return TrendUp
	case s.Close < s.EMA50 && s.EMA50 < s.EMA200:
		return TrendDown
	default:
		return TrendSideways
	}
}
