package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/model"
)

func sampleTrades() []model.TradeLog {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []model.TradeLog{
		{PositionID: "b", Symbol: "ETHUSDT", Direction: "SHORT", Stage: "FULL", Entry: decimal.NewFromInt(3000), ClosePrice: decimal.NewFromInt(2900),
			Size: decimal.NewFromInt(60), CloseReason: "TP", PnL: decimal.RequireFromString("19.5"), OpenedAt: day.Add(9 * time.Hour), ClosedAt: day.Add(14 * time.Hour)},
		{PositionID: "a", Symbol: "BTCUSDT", Direction: "LONG", Stage: "PROBE", Entry: decimal.NewFromInt(100), ClosePrice: decimal.NewFromInt(99),
			Size: decimal.NewFromInt(10), CloseReason: "TRAP", PnL: decimal.RequireFromString("-1.008"), OpenedAt: day.Add(8 * time.Hour), ClosedAt: day.Add(10 * time.Hour)},
		{PositionID: "c", Symbol: "SOLUSDT", Direction: "LONG", Stage: "PROBE", Entry: decimal.NewFromInt(20), ClosePrice: decimal.NewFromInt(21),
			Size: decimal.NewFromInt(10), CloseReason: "MAX_HOLD_PROFIT", PnL: decimal.RequireFromString("4.9"), OpenedAt: day.Add(11 * time.Hour), ClosedAt: day.Add(20 * time.Hour)},
	}
}

func TestReportOrdersByCloseTime(t *testing.T) {
	r := New(time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC), sampleTrades())
	require.Len(t, r.Trades, 3)
	assert.Equal(t, "a", r.Trades[0].PositionID)
	assert.Equal(t, "b", r.Trades[1].PositionID)
	assert.Equal(t, "c", r.Trades[2].PositionID)
	assert.Equal(t, "23.392", r.NetPnL().String())
	assert.Equal(t, "2024-05-01", r.Day())
}

func TestReportByStage(t *testing.T) {
	stats := New(time.Now(), sampleTrades()).ByStage()
	require.Len(t, stats, 2)

	assert.Equal(t, "PROBE", stats[0].Stage)
	assert.Equal(t, 2, stats[0].Trades)
	assert.Equal(t, 1, stats[0].Wins)
	assert.InDelta(t, 50.0, stats[0].WinRate(), 1e-9)
	assert.Equal(t, "3.892", stats[0].PnL.String())

	assert.Equal(t, "FULL", stats[1].Stage)
	assert.Equal(t, 1, stats[1].Trades)
	assert.InDelta(t, 100.0, stats[1].WinRate(), 1e-9)
}

func TestReportMarkdown(t *testing.T) {
	md := New(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), sampleTrades()).Markdown()
	assert.Contains(t, md, "**Daily report 2024-05-01**")
	assert.Contains(t, md, "| BTCUSDT | LONG | PROBE | 100.0000 | 99.0000 | TRAP | -1.01 |")
	assert.Contains(t, md, "Net PnL: 23.39 over 3 trades")
}

func TestReportMarkdownEmpty(t *testing.T) {
	r := New(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), nil)
	assert.Contains(t, r.Markdown(), "No closed trades.")
	assert.Contains(t, r.StageSummary(), "PROBE: 0 trades, win rate 0.0%, PnL 0.00")
}

func TestReportWriteCSV(t *testing.T) {
	dir := t.TempDir()
	r := New(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), sampleTrades())

	path, data, err := r.WriteCSV(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "trades_2024-05-01.csv"), path)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"a", "BTCUSDT", "LONG", "PROBE", "100", "99", "10", "TRAP", "-1.008",
		"2024-05-01T08:00:00Z", "2024-05-01T10:00:00Z"}, records[1])
}
