package model

import "time"

// StabilityState is the persisted debounce state of one (symbol, timeframe).
// ConsecutivePasses > 0 implies Side is LONG or SHORT.
type StabilityState struct {
	Symbol            string    `gorm:"primaryKey;size:50" json:"symbol"`
	Timeframe         string    `gorm:"primaryKey;size:10" json:"timeframe"`
	Side              Side      `gorm:"size:10;not null" json:"side"`
	ConsecutivePasses int       `gorm:"not null" json:"consecutive_passes"`
	LastPassAt        time.Time `json:"last_pass_ts"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (StabilityState) TableName() string {
	return "stability_states"
}
