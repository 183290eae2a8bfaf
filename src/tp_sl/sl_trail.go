package tp_sl

import (
	"github.com/shopspring/decimal"

	"signalengine/src/model"
)

// Tier is one step of the trailing ratchet: once ROI reaches ROI the stop
// is locked at Lock beyond the entry.
type Tier struct {
	ROI  decimal.Decimal
	Lock decimal.Decimal
}

func NewTier(roi, lock float64) Tier {
	return Tier{ROI: decimal.NewFromFloat(roi), Lock: decimal.NewFromFloat(lock)}
}

// Key identifies the tier inside Position.TrailingApplied.
func (t Tier) Key() string { return t.ROI.String() }

// NextStopLossDirectional moves the stop to candidate only when it tightens it.
//
// Long:  SL = max(SL, candidate)
// Short: SL = min(SL, candidate)
//
// An unset stop always accepts the candidate.
func NextStopLossDirectional(
	side model.Side,
	currentSL decimal.NullDecimal,
	candidate decimal.Decimal,
) (newSL decimal.NullDecimal, moved bool) {
	if !currentSL.Valid {
		if !side.IsDirectional() {
			return currentSL, false
		}
		return decimal.NewNullDecimal(candidate), true
	}

	switch side {
	case model.SideLong:
		if candidate.GreaterThan(currentSL.Decimal) {
			return decimal.NewNullDecimal(candidate), true
		}
		return currentSL, false

	case model.SideShort:
		// Stop only moves down for shorts
		if candidate.LessThan(currentSL.Decimal) {
			return decimal.NewNullDecimal(candidate), true
		}
		return currentSL, false

	default:
		return currentSL, false
	}
}

// LockedStop is entry*(1+lock) for longs and entry*(1-lock) for shorts.
func LockedStop(side model.Side, entry, lock decimal.Decimal) decimal.Decimal {
	if side == model.SideShort {
		return entry.Mul(decimal.NewFromInt(1).Sub(lock))
	}
	return entry.Mul(decimal.NewFromInt(1).Add(lock))
}

// ApplyTrailing runs every tier not yet applied on pos against price.
// Each tier fires at most once per position, and the stop never loosens.
func ApplyTrailing(pos *model.Position, price decimal.Decimal, tiers []Tier) (applied []Tier) {
	if !pos.IsOpen() {
		return nil
	}
	roi := pos.ROI(price)
	for _, tier := range tiers {
		if pos.TrailingApplied[tier.Key()] || roi.LessThan(tier.ROI) {
			continue
		}
		if pos.TrailingApplied == nil {
			pos.TrailingApplied = make(map[string]bool)
		}
		pos.StopLoss, _ = NextStopLossDirectional(pos.Direction, pos.StopLoss, LockedStop(pos.Direction, pos.Entry, tier.Lock))
		pos.TrailingApplied[tier.Key()] = true
		applied = append(applied, tier)
	}
	return applied
}
