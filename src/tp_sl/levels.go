package tp_sl

import (
	"github.com/shopspring/decimal"

	"signalengine/src/model"
)

var one = decimal.NewFromInt(1)

func TakeProfitTouched(side model.Side, price, tp decimal.Decimal) bool {
	if tp.IsZero() {
		return false
	}
	switch side {
	case model.SideLong:
		return price.GreaterThanOrEqual(tp)
	case model.SideShort:
		return price.LessThanOrEqual(tp)
	default:
		return false
	}
}

func StopLossTouched(side model.Side, price decimal.Decimal, sl decimal.NullDecimal) bool {
	if !sl.Valid {
		return false
	}
	switch side {
	case model.SideLong:
		return price.LessThanOrEqual(sl.Decimal)
	case model.SideShort:
		return price.GreaterThanOrEqual(sl.Decimal)
	default:
		return false
	}
}

// LeverageTarget is the price at which the margin doubles: price*(1 +/- 1/leverage).
func LeverageTarget(side model.Side, price, leverage decimal.Decimal) decimal.Decimal {
	if leverage.LessThanOrEqual(decimal.Zero) {
		leverage = one
	}
	move := one.Div(leverage)
	if side == model.SideShort {
		return price.Mul(one.Sub(move))
	}
	return price.Mul(one.Add(move))
}

// SignalLevels plans the stop and target of a confirmed signal:
// SL is slATR*ATR away from price, TP is tpR times that distance on the other side.
func SignalLevels(side model.Side, price, atr decimal.Decimal, slATR, tpR float64) (sl, tp decimal.Decimal) {
	dist := atr.Mul(decimal.NewFromFloat(slATR))
	reward := dist.Mul(decimal.NewFromFloat(tpR))
	if side == model.SideShort {
		return price.Add(dist), price.Sub(reward)
	}
	return price.Sub(dist), price.Add(reward)
}
