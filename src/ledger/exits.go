package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"signalengine/src/model"
	"signalengine/src/tp_sl"
)

// ExitInput is what the close rules look at for one open position.
type ExitInput struct {
	Price   decimal.Decimal
	M15Side model.Side
	// Warning is true when the close advisor currently suggests closing.
	Warning bool
	Now     time.Time
}

// ExitReason evaluates the close rules in order, first match wins:
// TP, SL, REVERSE, CLOSE_WARN_PNL_POS, MAX_HOLD_PROFIT.
func (l *Ledger) ExitReason(p *model.Position, in ExitInput) (model.CloseReason, bool) {
	if !p.IsOpen() {
		return "", false
	}
	if tp_sl.TakeProfitTouched(p.Direction, in.Price, p.TakeProfit) {
		return model.CloseReasonTP, true
	}
	if tp_sl.StopLossTouched(p.Direction, in.Price, p.StopLoss) {
		return model.CloseReasonSL, true
	}
	if in.M15Side.IsDirectional() && in.M15Side != p.Direction {
		return model.CloseReasonReverse, true
	}

	inProfit := l.UnrealizedPnL(p, in.Price).IsPositive()
	if in.Warning && inProfit && l.cfg.AutoCloseOnWarning {
		return model.CloseReasonWarnPnLPos, true
	}
	if l.cfg.MaxHoldBars > 0 && l.HeldBars(p, in.Now) >= l.cfg.MaxHoldBars && inProfit {
		return model.CloseReasonMaxHoldGains, true
	}
	return "", false
}
