package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"signalengine/src/model"
)

const (
	BreakoutBodyATR    = 1.2
	BreakoutVolumeMult = 1.5
	TrapVolumeMult     = 1.8
	AntiChaseATR       = 1.2
	VolumeLookback     = 20
)

// Market is the M15 view of a symbol the lifecycle rules run against.
type Market struct {
	Price     decimal.Decimal
	Last      model.Candle
	AvgVolume decimal.Decimal
	ATR       float64
	MA50      float64
	AntiChase bool
	M15Side   model.Side
}

func valid(x float64) bool { return x > 0 && !math.IsNaN(x) && !math.IsInf(x, 0) }

// IsBreakout checks the last candle: a body beyond BreakoutBodyATR*ATR in
// direction, volume above BreakoutVolumeMult times the 20-bar average and a
// close on the right side of ma. Missing inputs never count as a breakout.
func IsBreakout(candles []model.Candle, atr, ma float64, direction model.Side) bool {
	if !valid(atr) || !valid(ma) || !direction.IsDirectional() {
		return false
	}
	avgVol, ok := model.AvgVolume(candles, VolumeLookback)
	if !ok || !avgVol.IsPositive() {
		return false
	}
	last, _ := model.Last(candles)

	body := last.Close.Sub(last.Open)
	closeBeyond := last.Close.GreaterThan(decimal.NewFromFloat(ma))
	if direction == model.SideShort {
		body = body.Neg()
		closeBeyond = last.Close.LessThan(decimal.NewFromFloat(ma))
	}
	bigBody := body.GreaterThan(decimal.NewFromFloat(BreakoutBodyATR * atr))
	bigVolume := last.Volume.GreaterThan(avgVol.Mul(decimal.NewFromFloat(BreakoutVolumeMult)))
	return bigBody && bigVolume && closeBeyond
}

// IsTrap is an opposite-direction candle with volume above TrapVolumeMult times average.
func IsTrap(last model.Candle, avgVolume decimal.Decimal, direction model.Side) bool {
	if !avgVolume.IsPositive() || !direction.IsDirectional() {
		return false
	}
	return last.Direction() != direction &&
		last.Volume.GreaterThan(avgVolume.Mul(decimal.NewFromFloat(TrapVolumeMult)))
}

// IsAntiChase is true when price sits more than AntiChaseATR*ATR away from ma.
func IsAntiChase(price, ma, atr float64) bool {
	if !valid(atr) || !valid(ma) {
		return false
	}
	return math.Abs(price-ma) > AntiChaseATR*atr
}

// PullbackOK is true once close is back within mult*ATR of entry.
func PullbackOK(close, entry decimal.Decimal, atr, mult float64) bool {
	if !valid(atr) {
		return false
	}
	return close.Sub(entry).Abs().LessThanOrEqual(decimal.NewFromFloat(mult * atr))
}

type PromotionOutcome int

const (
	PromotionHeld PromotionOutcome = iota
	PromotionDone
	PromotionTrapped
)

func (o PromotionOutcome) String() string {
	switch o {
	case PromotionDone:
		return "promoted"
	case PromotionTrapped:
		return "trapped"
	default:
		return "held"
	}
}

// Advance runs the probe rules on p: a trap closes it, a confirmed pullback
// without anti-chase promotes it, anything else keeps it as a probe.
func (l *Ledger) Advance(ctx context.Context, p *model.Position, m Market, now time.Time) (PromotionOutcome, error) {
	if p.Stage != model.StageProbe {
		return PromotionHeld, nil
	}

	if IsTrap(m.Last, m.AvgVolume, p.Direction) {
		if err := l.Close(ctx, p, m.Price, model.CloseReasonTrap, now); err != nil {
			return PromotionHeld, err
		}
		return PromotionTrapped, nil
	}

	if m.AntiChase || !PullbackOK(m.Price, p.Entry, m.ATR, l.cfg.PullbackATR) {
		return PromotionHeld, nil
	}
	if err := l.Promote(p, m.Price, now); err != nil {
		if errors.Is(err, ErrBelowMinNotional) {
			l.logger.WithError(err).WithField("id", p.ID).Warn("Promotion skipped")
		}
		return PromotionHeld, err
	}
	return PromotionDone, nil
}
