package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/report"
)

// TradeLister returns the trades closed on the calendar day of day.
type TradeLister interface {
	ListByDate(ctx context.Context, day time.Time) ([]model.TradeLog, error)
}

// maybeReport sends the end-of-day report on the first tick at or after the
// configured report time, once per date.
func (e *Engine) maybeReport(ctx context.Context, now time.Time) {
	sched := e.cfg.Scheduler
	if now.Hour() != sched.ReportHour || now.Minute() < sched.ReportMinute {
		return
	}
	day := now.Format("2006-01-02")
	if e.reported[day] {
		return
	}
	e.reported[day] = true

	var lister TradeLister = historyLister{e}
	if e.trades != nil {
		lister = e.trades
	}
	if err := SendDailyReport(ctx, lister, e.notifier, e.reportDir, now, e.logger); err != nil {
		e.logger.WithError(err).WithField("date", day).Error("Daily report failed")
		return
	}
	e.metrics.AlertSent("report")
}

// SendDailyReport posts the markdown report and stage summary of day, then
// the CSV attachment. An empty dir skips writing the CSV to disk.
func SendDailyReport(ctx context.Context, trades TradeLister, n Notifier, dir string, day time.Time, log *logrus.Entry) error {
	rows, err := trades.ListByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	r := report.New(day, rows)

	if err := n.Text(ctx, "**End of day report**\n"+r.Markdown()+"\n"+r.StageSummary()); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	var data []byte
	if dir != "" {
		var path string
		path, data, err = r.WriteCSV(dir)
		if err == nil && log != nil {
			log.WithField("path", path).Info("Daily report written")
		}
	} else {
		data, err = r.CSV()
	}
	if err != nil {
		return err
	}
	if err := n.File(ctx, r.FileName(), data, "Trade details (CSV)"); err != nil {
		return fmt.Errorf("send report csv: %w", err)
	}
	return nil
}

// historyLister serves the report from the in-memory ledger when no trade store is configured.
type historyLister struct{ e *Engine }

func (h historyLister) ListByDate(_ context.Context, day time.Time) ([]model.TradeLog, error) {
	y, m, d := day.Date()
	var out []model.TradeLog
	for _, p := range h.e.ledger.History() {
		if p.ClosedAt == nil {
			continue
		}
		cy, cm, cd := p.ClosedAt.In(day.Location()).Date()
		if cy == y && cm == m && cd == d {
			out = append(out, *model.NewTradeLog(p))
		}
	}
	return out, nil
}
