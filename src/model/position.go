package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stage string

const (
	StageProbe  Stage = "PROBE"
	StageFull   Stage = "FULL"
	StageClosed Stage = "CLOSED"
)

type CloseReason string

const (
	CloseReasonTP           CloseReason = "TP"
	CloseReasonSL           CloseReason = "SL"
	CloseReasonReverse      CloseReason = "REVERSE"
	CloseReasonTrap         CloseReason = "TRAP"
	CloseReasonWarnPnLPos   CloseReason = "CLOSE_WARN_PNL_POS"
	CloseReasonMaxHoldGains CloseReason = "MAX_HOLD_PROFIT"
)

// Position is a simulated staged position. Size is the committed margin,
// exposure is Size times the ledger leverage.
type Position struct {
	ID              string              `json:"id"`
	Symbol          string              `json:"symbol"`
	Direction       Side                `json:"direction"`
	Stage           Stage               `json:"stage"`
	Entry           decimal.Decimal     `json:"entry"`
	StopLoss        decimal.NullDecimal `json:"stop_loss"`
	TakeProfit      decimal.Decimal     `json:"take_profit"`
	Size            decimal.Decimal     `json:"size"`
	ProbeSize       decimal.Decimal     `json:"probe_size"`
	OpenedAt        time.Time           `json:"opened_at"`
	PromotedAt      *time.Time          `json:"promoted_at,omitempty"`
	TrailingApplied map[string]bool     `json:"trailing_applied,omitempty"`
	CloseReason     CloseReason         `json:"close_reason,omitempty"`
	ClosePrice      decimal.Decimal     `json:"close_price"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty"`
	RealizedPnL     decimal.Decimal     `json:"realized_pnl"`
}

func (p *Position) IsOpen() bool {
	return p.Stage == StageProbe || p.Stage == StageFull
}

// HeldStage is the last open stage of the position, also once it is closed.
func (p *Position) HeldStage() Stage {
	if p.PromotedAt != nil {
		return StageFull
	}
	return StageProbe
}

// ROI returns the unleveraged price return of the position at price.
func (p *Position) ROI(price decimal.Decimal) decimal.Decimal {
	if p.Entry.IsZero() {
		return decimal.Zero
	}
	diff := price.Sub(p.Entry)
	if p.Direction == SideShort {
		diff = diff.Neg()
	}
	return diff.Div(p.Entry)
}

// SentSideRecord is the last accepted new-entry notification for a symbol and timeframe.
type SentSideRecord struct {
	Direction  Side                `json:"direction"`
	SentAt     time.Time           `json:"sent_at"`
	Entry      decimal.Decimal     `json:"entry"`
	StopLoss   decimal.NullDecimal `json:"stop_loss"`
	TakeProfit decimal.Decimal     `json:"take_profit"`
}
