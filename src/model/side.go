package model

import "strings"

// Side is the direction a timeframe, a signal or a position points to.
type Side string

const (
	SideLong    Side = "LONG"
	SideShort   Side = "SHORT"
	SideNeutral Side = "NEUTRAL"
)

// SideEpsilon is the minimum score difference required to leave NEUTRAL.
const SideEpsilon = 0.1

// DecideSide maps a long/short score pair to a side.
func DecideSide(scoreLong, scoreShort float64) Side {
	if scoreLong-scoreShort > SideEpsilon {
		return SideLong
	}
	if scoreShort-scoreLong > SideEpsilon {
		return SideShort
	}
	return SideNeutral
}

func (s Side) IsDirectional() bool { return s == SideLong || s == SideShort }

// Opposite returns the other direction; NEUTRAL stays NEUTRAL.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return SideNeutral
	}
}

// ParseSide accepts long/short/neutral in any case.
func ParseSide(v string) Side {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "LONG", "BUY":
		return SideLong
	case "SHORT", "SELL":
		return SideShort
	default:
		return SideNeutral
	}
}

// NormalizeSymbol returns the canonical key used by every per-symbol map.
//
//	BTC/USDT  -> BTCUSDT
//	eth_usdt  -> ETHUSDT
//	SOL-USDT  -> SOLUSDT
func NormalizeSymbol(symbol string) string {
	r := strings.NewReplacer("/", "", "_", "", "-", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(symbol)))
}
