// Package indicators computes the technical series the analyzer votes on.
//
// Every function returns a slice aligned to its input. Indices before the
// first full window are NaN, so callers can tell a gap from a real zero.
package indicators

import (
	"math"

	"signalengine/src/model"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Closes, Highs, Lows and Volumes project candles to float series.
func Closes(c []model.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].Close.InexactFloat64()
	}
	return out
}

func Highs(c []model.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].High.InexactFloat64()
	}
	return out
}

func Lows(c []model.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].Low.InexactFloat64()
	}
	return out
}

func Volumes(c []model.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i].Volume.InexactFloat64()
	}
	return out
}

// SMA is the n-period simple moving average.
func SMA(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	if n <= 0 {
		return out
	}
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= n {
			sum -= x[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA is the n-period exponential moving average seeded with the first SMA.
func EMA(x []float64, n int) []float64 {
	out := nanSlice(len(x))
	if n <= 0 || len(x) < n {
		return out
	}
	k := 2.0 / float64(n+1)
	var seed float64
	for i := 0; i < n; i++ {
		seed += x[i]
	}
	out[n-1] = seed / float64(n)
	for i := n; i < len(x); i++ {
		out[i] = x[i]*k + out[i-1]*(1-k)
	}
	return out
}

// wilder smooths x with Wilder's running average starting at index start.
func wilder(x []float64, n, start int) []float64 {
	out := nanSlice(len(x))
	if n <= 0 || len(x) < start+n {
		return out
	}
	var seed float64
	for i := start; i < start+n; i++ {
		seed += x[i]
	}
	first := start + n - 1
	out[first] = seed / float64(n)
	for i := first + 1; i < len(x); i++ {
		out[i] = (out[i-1]*float64(n-1) + x[i]) / float64(n)
	}
	return out
}

// TrueRange of each bar; the first bar uses high-low.
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR is the n-period average true range (Wilder).
func ATR(high, low, close []float64, n int) []float64 {
	return wilder(TrueRange(high, low, close), n, 1)
}

// RSI is the n-period relative strength index (Wilder).
func RSI(close []float64, n int) []float64 {
	gains := make([]float64, len(close))
	losses := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := wilder(gains, n, 1)
	avgLoss := wilder(losses, n, 1)

	out := nanSlice(len(close))
	for i := range close {
		if math.IsNaN(avgGain[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// DMI returns ADX with the +DI and -DI lines (Wilder, n periods).
func DMI(high, low, close []float64, n int) (adx, plusDI, minusDI []float64) {
	size := len(close)
	plusDM := make([]float64, size)
	minusDM := make([]float64, size)
	for i := 1; i < size; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	tr := wilder(TrueRange(high, low, close), n, 1)
	pdm := wilder(plusDM, n, 1)
	mdm := wilder(minusDM, n, 1)

	plusDI = nanSlice(size)
	minusDI = nanSlice(size)
	dx := make([]float64, size)
	firstDX := -1
	for i := 0; i < size; i++ {
		if math.IsNaN(tr[i]) || tr[i] == 0 {
			continue
		}
		plusDI[i] = 100 * pdm[i] / tr[i]
		minusDI[i] = 100 * mdm[i] / tr[i]
		if sum := plusDI[i] + minusDI[i]; sum > 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
		}
		if firstDX < 0 {
			firstDX = i
		}
	}
	if firstDX < 0 {
		return nanSlice(size), plusDI, minusDI
	}
	adx = wilder(dx, n, firstDX)
	return adx, plusDI, minusDI
}

// MACDHist is the MACD histogram (fast EMA - slow EMA - signal EMA).
func MACDHist(close []float64, fast, slow, signal int) []float64 {
	fastEMA := EMA(close, fast)
	slowEMA := EMA(close, slow)

	line := make([]float64, 0, len(close))
	offset := -1
	for i := range close {
		if math.IsNaN(slowEMA[i]) {
			continue
		}
		if offset < 0 {
			offset = i
		}
		line = append(line, fastEMA[i]-slowEMA[i])
	}

	out := nanSlice(len(close))
	if offset < 0 {
		return out
	}
	sig := EMA(line, signal)
	for j := range line {
		if !math.IsNaN(sig[j]) {
			out[offset+j] = line[j] - sig[j]
		}
	}
	return out
}

// Stochastic returns the %K line over kN bars and its dN-bar SMA (%D).
// A bar whose range is zero has %K 50.
func Stochastic(high, low, close []float64, kN, dN int) (k, d []float64) {
	k = nanSlice(len(close))
	if kN <= 0 {
		return k, nanSlice(len(close))
	}
	for i := kN - 1; i < len(close); i++ {
		hh, ll := high[i], low[i]
		for j := i - kN + 1; j < i; j++ {
			hh = math.Max(hh, high[j])
			ll = math.Min(ll, low[j])
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = 100 * (close[i] - ll) / (hh - ll)
	}
	d = nanSlice(len(close))
	if dN <= 0 {
		return k, d
	}
	for i := kN + dN - 2; i < len(close); i++ {
		var sum float64
		for j := i - dN + 1; j <= i; j++ {
			sum += k[j]
		}
		d[i] = sum / float64(dN)
	}
	return k, d
}

// Bollinger returns the n-bar SMA with the bands mult standard deviations away.
func Bollinger(close []float64, n int, mult float64) (mid, upper, lower []float64) {
	mid = SMA(close, n)
	upper = nanSlice(len(close))
	lower = nanSlice(len(close))
	for i := range close {
		if math.IsNaN(mid[i]) {
			continue
		}
		var sq float64
		for j := i - n + 1; j <= i; j++ {
			diff := close[j] - mid[i]
			sq += diff * diff
		}
		dev := math.Sqrt(sq / float64(n))
		upper[i] = mid[i] + mult*dev
		lower[i] = mid[i] - mult*dev
	}
	return mid, upper, lower
}

// LastValid returns the last element of x, ok is false for NaN or empty input.
func LastValid(x []float64) (float64, bool) {
	if len(x) == 0 {
		return 0, false
	}
	v := x[len(x)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
