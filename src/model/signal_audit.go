package model

import "time"

const (
	AuditPhaseScan          = "scan"
	AuditPhaseProbeBreakout = "probe_breakout"
)

// SignalAudit is one diagnostic row per symbol per phase per tick.
type SignalAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Symbol    string    `gorm:"size:50;index;not null" json:"symbol"`
	Phase     string    `gorm:"size:30;not null" json:"phase"`
	Side      string    `gorm:"size:10" json:"side"`
	M15Score  float64   `json:"m15_score"`
	H1Score   float64   `json:"h1_score"`
	HeavyHits int       `json:"heavy_hits"`
	ADXH1     float64   `gorm:"column:adx_h1" json:"adx_h1"`
	AntiChase bool      `json:"anti_chase"`
	Passed    bool      `json:"passed"`
	Stable    bool      `json:"stable"`
	Decision  string    `gorm:"size:50" json:"decision"`
	TrendH1   string    `gorm:"column:trend_h1;size:20" json:"trend_h1"`
	TrendD1   string    `gorm:"column:trend_d1;size:20" json:"trend_d1"`
	Failures  string    `gorm:"type:text" json:"failures,omitempty"`
	Breakdown string    `gorm:"type:text" json:"breakdown,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (SignalAudit) TableName() string {
	return "signal_audits"
}
