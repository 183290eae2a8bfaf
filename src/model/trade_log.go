package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeLog is the append-only record of a closed simulated position.
type TradeLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PositionID  string          `gorm:"size:36;index" json:"position_id"`
	Symbol      string          `gorm:"size:50;index;not null" json:"symbol"`
	Direction   string          `gorm:"size:10;not null" json:"direction"`
	Stage       string          `gorm:"size:10;not null" json:"stage"`
	Entry       decimal.Decimal `gorm:"type:numeric(20,8)" json:"entry"`
	ClosePrice  decimal.Decimal `gorm:"type:numeric(20,8)" json:"close_price"`
	Size        decimal.Decimal `gorm:"type:numeric(20,8)" json:"size"`
	CloseReason string          `gorm:"size:30;index" json:"close_reason"`
	PnL         decimal.Decimal `gorm:"column:pnl;type:numeric(20,8)" json:"pnl"`
	OpenedAt    time.Time       `json:"opened_at"`
	ClosedAt    time.Time       `gorm:"index" json:"closed_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (TradeLog) TableName() string {
	return "trade_logs"
}

// NewTradeLog builds the trade log row of a closed position.
func NewTradeLog(p *Position) *TradeLog {
	row := &TradeLog{
		PositionID:  p.ID,
		Symbol:      p.Symbol,
		Direction:   string(p.Direction),
		Stage:       string(p.HeldStage()),
		Entry:       p.Entry,
		ClosePrice:  p.ClosePrice,
		Size:        p.Size,
		CloseReason: string(p.CloseReason),
		PnL:         p.RealizedPnL,
		OpenedAt:    p.OpenedAt,
	}
	if p.ClosedAt != nil {
		row.ClosedAt = *p.ClosedAt
	}
	return row
}
