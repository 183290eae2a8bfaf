package engine

import (
	"context"
	"fmt"
	"time"

	"signalengine/src/advisor"
	"signalengine/src/ledger"
	"signalengine/src/model"
)

// manageOpen runs trailing, the close rules and the close advisory on every
// open position of symbol, in that order.
func (e *Engine) manageOpen(ctx context.Context, symbol string, v m15View, now time.Time) error {
	adx, rsi := v.snap.ADX, v.snap.RSI
	for _, p := range e.ledger.OpenPositions(symbol) {
		e.ledger.Trail(p, v.price)

		advice := e.advisor.Evaluate(p, advisor.Input{
			M15Side:       v.side,
			ADX:           &adx,
			RSI:           &rsi,
			Now:           now,
			UnrealizedPnL: e.ledger.UnrealizedPnL(p, v.price),
		})

		reason, ok := e.ledger.ExitReason(p, ledger.ExitInput{
			Price:   v.price,
			M15Side: v.side,
			Warning: advice.Suggest,
			Now:     now,
		})
		if ok {
			if err := e.ledger.Close(ctx, p, v.price, reason, now); err != nil {
				return fmt.Errorf("close %s: %w", p.ID, err)
			}
			continue
		}

		if !advice.Suggest {
			e.warnings.Clear(p.ID)
			continue
		}
		if e.warnings.ShouldSend(p.ID, string(advice.Reason)) {
			e.notify(ctx, "close_warning", advice.Content)
		}
	}
	return nil
}

// onClose runs once for every closed position, whatever closed it.
func (e *Engine) onClose(ctx context.Context, p *model.Position) {
	closedAt := e.now()
	if p.ClosedAt != nil {
		closedAt = *p.ClosedAt
	}
	e.cooldown.Start(p.Symbol, closedAt)
	e.entries.Forget(p.Symbol, model.TimeframeM15, p.Direction)
	e.warnings.Clear(p.ID)
	e.signals.Forget(p.Symbol)

	pnl, _ := p.RealizedPnL.Float64()
	e.metrics.PositionClosed(string(p.CloseReason), pnl)

	if e.trades != nil {
		if err := e.trades.Create(ctx, model.NewTradeLog(p)); err != nil {
			e.logger.WithError(err).WithField("id", p.ID).Error("Failed to write trade log")
		}
	}

	e.notify(ctx, "close", fmt.Sprintf("%s\n%s %s (%s) entry %s -> %s | PnL %s | balance %s",
		closeHeadline(p), p.Symbol, p.Direction, p.HeldStage(),
		p.Entry.StringFixed(6), p.ClosePrice.String(),
		p.RealizedPnL.StringFixed(2), e.ledger.Balance().StringFixed(2)))
}

func closeHeadline(p *model.Position) string {
	switch p.CloseReason {
	case model.CloseReasonTP:
		return fmt.Sprintf("Take profit hit on %s", p.Symbol)
	case model.CloseReasonSL:
		return fmt.Sprintf("Stop loss hit on %s", p.Symbol)
	case model.CloseReasonReverse:
		return fmt.Sprintf("Closed %s on M15 reversal", p.Symbol)
	case model.CloseReasonTrap:
		return fmt.Sprintf("Closed probe %s on a high-volume trap reversal", p.Symbol)
	case model.CloseReasonWarnPnLPos:
		return fmt.Sprintf("Closed %s on close warning while in profit", p.Symbol)
	case model.CloseReasonMaxHoldGains:
		return fmt.Sprintf("Closed %s after max hold while in profit", p.Symbol)
	default:
		return fmt.Sprintf("Closed %s (%s)", p.Symbol, p.CloseReason)
	}
}
