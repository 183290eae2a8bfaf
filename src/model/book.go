package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookSnapshot is a read-only copy of the ledger published after each tick.
type BookSnapshot struct {
	Balance       decimal.Decimal `json:"balance"`
	Open          []Position      `json:"open"`
	ActiveSignals []string        `json:"active_signals"`
	LastTickAt    time.Time       `json:"last_tick_at"`
}
