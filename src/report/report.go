// Package report builds the end-of-day summary of closed simulated trades.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"signalengine/src/model"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{
	"position_id", "symbol", "direction", "stage", "entry", "close_price",
	"size", "close_reason", "pnl", "opened_at", "closed_at",
}

// StageStats aggregates the trades closed while holding one stage.
type StageStats struct {
	Stage  string
	Trades int
	Wins   int
	PnL    decimal.Decimal
}

func (s StageStats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}

type Report struct {
	Date   time.Time
	Trades []model.TradeLog
}

func New(date time.Time, trades []model.TradeLog) *Report {
	sorted := append([]model.TradeLog(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ClosedAt.Before(sorted[j].ClosedAt)
	})
	return &Report{Date: date, Trades: sorted}
}

func (r *Report) Day() string { return r.Date.Format(dateLayout) }

// NetPnL sums the realized PnL of every trade.
func (r *Report) NetPnL() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Trades {
		total = total.Add(t.PnL)
	}
	return total
}

// ByStage returns PROBE then FULL, plus any other stage seen, in that order.
func (r *Report) ByStage() []StageStats {
	index := map[string]*StageStats{}
	order := []string{string(model.StageProbe), string(model.StageFull)}
	for _, s := range order {
		index[s] = &StageStats{Stage: s, PnL: decimal.Zero}
	}
	for _, t := range r.Trades {
		st, ok := index[t.Stage]
		if !ok {
			st = &StageStats{Stage: t.Stage, PnL: decimal.Zero}
			index[t.Stage] = st
			order = append(order, t.Stage)
		}
		st.Trades++
		if t.PnL.IsPositive() {
			st.Wins++
		}
		st.PnL = st.PnL.Add(t.PnL)
	}
	out := make([]StageStats, 0, len(order))
	for _, s := range order {
		out = append(out, *index[s])
	}
	return out
}

// Markdown renders the trades as a table followed by the net PnL line.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Daily report %s**\n", r.Day())
	if len(r.Trades) == 0 {
		b.WriteString("No closed trades.\n")
		return b.String()
	}
	b.WriteString("| Symbol | Dir | Stage | Entry | Close | Reason | PnL |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, t := range r.Trades {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			t.Symbol, t.Direction, t.Stage,
			t.Entry.StringFixed(4), t.ClosePrice.StringFixed(4),
			t.CloseReason, t.PnL.StringFixed(2))
	}
	fmt.Fprintf(&b, "Net PnL: %s over %d trades\n", r.NetPnL().StringFixed(2), len(r.Trades))
	return b.String()
}

// StageSummary is one line per stage with count, win rate and PnL.
func (r *Report) StageSummary() string {
	var b strings.Builder
	for _, s := range r.ByStage() {
		fmt.Fprintf(&b, "%s: %d trades, win rate %.1f%%, PnL %s\n",
			s.Stage, s.Trades, s.WinRate(), s.PnL.StringFixed(2))
	}
	return b.String()
}

// CSV encodes every trade with a header row.
func (r *Report) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, t := range r.Trades {
		record := []string{
			t.PositionID, t.Symbol, t.Direction, t.Stage,
			t.Entry.String(), t.ClosePrice.String(), t.Size.String(),
			t.CloseReason, t.PnL.String(),
			t.OpenedAt.UTC().Format(time.RFC3339), t.ClosedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Report) FileName() string {
	return fmt.Sprintf("trades_%s.csv", r.Day())
}

// WriteCSV stores the CSV under dir and returns its path and content.
func (r *Report) WriteCSV(dir string) (string, []byte, error) {
	data, err := r.CSV()
	if err != nil {
		return "", nil, fmt.Errorf("encode report csv: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, r.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("write report csv: %w", err)
	}
	return path, data, nil
}
