package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CandleRecord is an archived bar. One row per (symbol, timeframe, datetime).
type CandleRecord struct {
	ID        uint            `gorm:"primaryKey"`
	Symbol    string          `json:"symbol"    gorm:"type:varchar(50);not null;uniqueIndex:ux_candle_records_symbol_tf_datetime,priority:1"`
	Timeframe string          `json:"timeframe" gorm:"type:varchar(10);not null;uniqueIndex:ux_candle_records_symbol_tf_datetime,priority:2"`
	Datetime  time.Time       `json:"datetime"  gorm:"not null;uniqueIndex:ux_candle_records_symbol_tf_datetime,priority:3;index:idx_candle_records_datetime"`
	Open      decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High      decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low       decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close     decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume    decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (CandleRecord) TableName() string {
	return "candle_records"
}

// NewCandleRecord aligns c to the start of its bar.
func NewCandleRecord(symbol string, tf Timeframe, c Candle) *CandleRecord {
	dt := c.Datetime.UTC()
	if d := tf.BarDuration(); d > 0 {
		dt = dt.Truncate(d)
	}
	return &CandleRecord{
		Symbol:    NormalizeSymbol(symbol),
		Timeframe: string(tf),
		Datetime:  dt,
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    c.Volume,
	}
}

func (r CandleRecord) Candle() Candle {
	return Candle{
		Datetime: r.Datetime,
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		Volume:   r.Volume,
	}
}
