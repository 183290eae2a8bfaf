package indicators

import (
	"strings"

	"signalengine/src/model"
)

const (
	SignalEMA    = "EMA"
	SignalMA50   = "MA50"
	SignalEMA200 = "EMA200"
	SignalRSI    = "RSI"
	SignalMACD   = "MACD"
	SignalADX    = "ADX"
	SignalVolume = "VOLUME"
	SignalStoch  = "STOCH"
	SignalBB     = "BB"
)

// SignalNames lists every indicator Signals votes on, the valid weight keys.
var SignalNames = []string{
	SignalEMA, SignalMA50, SignalEMA200, SignalRSI, SignalMACD,
	SignalADX, SignalVolume, SignalStoch, SignalBB,
}

// IsSignal reports whether name (any case) is one of SignalNames.
func IsSignal(name string) bool {
	name = strings.ToUpper(name)
	for _, s := range SignalNames {
		if s == name {
			return true
		}
	}
	return false
}

func sideOf(a, b float64) model.Side {
	switch {
	case a > b:
		return model.SideLong
	case a < b:
		return model.SideShort
	default:
		return model.SideNeutral
	}
}

// Signals maps each indicator to the side it currently points to.
func Signals(s Snapshot) map[string]model.Side {
	out := map[string]model.Side{
		SignalEMA:    sideOf(s.EMA20, s.EMA50),
		SignalMA50:   sideOf(s.Close, s.MA50),
		SignalEMA200: sideOf(s.Close, s.EMA200),
		SignalMACD:   sideOf(s.MACDHist, 0),
		SignalStoch:  sideOf(s.StochK, s.StochD),
		SignalBB:     sideOf(s.Close, s.BBMid),
		SignalRSI:    model.SideNeutral,
		SignalADX:    model.SideNeutral,
		SignalVolume: model.SideNeutral,
	}
	switch {
	case s.RSI > 55:
		out[SignalRSI] = model.SideLong
	case s.RSI < 45:
		out[SignalRSI] = model.SideShort
	}
	if s.ADX >= 20 {
		out[SignalADX] = sideOf(s.PlusDI, s.MinusDI)
	}
	if s.AvgVolume20 > 0 && s.Volume > s.AvgVolume20 {
		out[SignalVolume] = sideOf(s.Close, s.Open)
	}
	return out
}

// Tally sums the weights of the indicators voting for each side. Indicators
// missing from a non-empty weight set do not vote; an empty set weighs all at 1.
func Tally(signals map[string]model.Side, weights map[string]float64) model.TimeframeVote {
	upper := make(map[string]float64, len(weights))
	for k, w := range weights {
		upper[strings.ToUpper(k)] = w
	}

	vote := model.TimeframeVote{
		BreakdownLong:  map[string]float64{},
		BreakdownShort: map[string]float64{},
	}
	for name, side := range signals {
		w := 1.0
		if len(upper) > 0 {
			var ok bool
			if w, ok = upper[name]; !ok || w <= 0 {
				continue
			}
		}
		switch side {
		case model.SideLong:
			vote.ScoreLong += w
			vote.BreakdownLong[name] = w
		case model.SideShort:
			vote.ScoreShort += w
			vote.BreakdownShort[name] = w
		}
	}
	return vote
}

// HeavyHits counts the structural confirmations of side on the long horizon.
func HeavyHits(h1 Snapshot, side model.Side) int {
	if !side.IsDirectional() {
		return 0
	}
	checks := []model.Side{
		sideOf(h1.Close, h1.EMA200),
		sideOf(h1.EMA50, h1.EMA200),
		sideOf(h1.EMA20, h1.EMA50),
		sideOf(h1.MACDHist, 0),
		sideOf(h1.PlusDI, h1.MinusDI),
	}
	hits := 0
	for _, c := range checks {
		if c == side {
			hits++
		}
	}
	return hits
}
