package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"signalengine/src/model"
)

type Reason string

const (
	ReasonReversal     Reason = "REVERSAL"
	ReasonWeakMomentum Reason = "WEAK_MOMENTUM"
	ReasonNeutralRSI   Reason = "NEUTRAL_RSI"
	ReasonStaleHold    Reason = "STALE_HOLD"
)

type Config struct {
	WeakADX     float64
	RSILow      float64
	RSIHigh     float64
	MaxHoldBars int
}

// Input is the market view for one open position. Nil ADX or RSI skip their rule.
type Input struct {
	M15Side       model.Side
	ADX           *float64
	RSI           *float64
	Now           time.Time
	UnrealizedPnL decimal.Decimal
}

type Advice struct {
	Suggest bool
	Reason  Reason
	Content string
}

type Advisor struct {
	cfg Config
}

func New(cfg Config) *Advisor {
	return &Advisor{cfg: cfg}
}

// Evaluate checks, in order: reversal, weak momentum, neutral RSI, stale hold.
func (a *Advisor) Evaluate(p *model.Position, in Input) Advice {
	held := model.TimeframeM15.BarsBetween(p.OpenedAt, in.Now)

	var reason Reason
	var detail string
	switch {
	case in.M15Side.IsDirectional() && in.M15Side != p.Direction:
		reason, detail = ReasonReversal, fmt.Sprintf("M15 turned %s", in.M15Side)
	case in.ADX != nil && *in.ADX < a.cfg.WeakADX:
		reason, detail = ReasonWeakMomentum, fmt.Sprintf("ADX %.1f < %.0f", *in.ADX, a.cfg.WeakADX)
	case in.RSI != nil && *in.RSI >= a.cfg.RSILow && *in.RSI <= a.cfg.RSIHigh:
		reason, detail = ReasonNeutralRSI, fmt.Sprintf("RSI %.1f inside %.0f-%.0f", *in.RSI, a.cfg.RSILow, a.cfg.RSIHigh)
	case a.cfg.MaxHoldBars > 0 && held > a.cfg.MaxHoldBars:
		reason, detail = ReasonStaleHold, fmt.Sprintf("held %d M15 bars", held)
	default:
		return Advice{}
	}

	return Advice{
		Suggest: true,
		Reason:  reason,
		Content: formatAdvice(p, reason, detail, held, in.UnrealizedPnL),
	}
}

func formatAdvice(p *model.Position, reason Reason, detail string, held int, pnl decimal.Decimal) string {
	sl := "-"
	if p.StopLoss.Valid {
		sl = p.StopLoss.Decimal.StringFixed(4)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**CLOSE SUGGESTED [%s]** %s\n", p.Symbol, reason)
	fmt.Fprintf(&b, "Reason: %s\n", detail)
	fmt.Fprintf(&b, "Side: %s | Stage: %s | Entry: %s | SL: %s | TP: %s\n",
		p.Direction, p.Stage, p.Entry.StringFixed(4), sl, p.TakeProfit.StringFixed(4))
	fmt.Fprintf(&b, "Held: %d M15 bars | PnL: %s", held, pnl.StringFixed(2))
	return b.String()
}
