package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"signalengine/src/gate"
	"signalengine/src/indicators"
	"signalengine/src/ledger"
	"signalengine/src/model"
	"signalengine/src/tp_sl"
)

type seriesRequirement struct {
	tf      model.Timeframe
	limit   int
	minBars int
}

var requirements = []seriesRequirement{
	{model.TimeframeM5, 400, 215},
	{model.TimeframeM15, 300, 200},
	{model.TimeframeH1, 300, 200},
	{model.TimeframeD1, 300, 200},
}

// maxLagBars is how many bar durations the last candle may trail the tick.
const maxLagBars = 2

// m15View is the M15 market state every lifecycle rule of one symbol reads.
type m15View struct {
	candles   []model.Candle
	snap      indicators.Snapshot
	side      model.Side
	price     decimal.Decimal
	avgVolume decimal.Decimal
	antiChase bool
}

func (v m15View) market() ledger.Market {
	last, _ := model.Last(v.candles)
	return ledger.Market{
		Price:     v.price,
		Last:      last,
		AvgVolume: v.avgVolume,
		ATR:       v.snap.ATR,
		MA50:      v.snap.MA50,
		AntiChase: v.antiChase,
		M15Side:   v.side,
	}
}

func (e *Engine) processSymbol(ctx context.Context, symbol string, now time.Time) error {
	series, err := e.fetch(ctx, symbol, now)
	if err != nil {
		return err
	}

	an, err := e.analyzer.Analyze(series)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrComputation, symbol, err)
	}

	res := gate.Evaluate(gate.Input{
		M5:        an.Votes[model.TimeframeM5],
		M15:       an.Votes[model.TimeframeM15],
		H1:        an.Votes[model.TimeframeH1],
		HeavyHits: an.HeavyHits,
		ADXH1:     an.ADXH1,
	}, e.thresholds)
	e.metrics.GateEvaluated(res.Passed)
	stable := e.tracker.Update(ctx, symbol, model.TimeframeM15, res.Side, res.Passed, now)

	view := newM15View(series[model.TimeframeM15], an)
	e.auditScan(ctx, symbol, res, stable, view, an, now)

	if res.Passed && stable {
		e.alertConfirmed(ctx, symbol, res, view, now)
	}

	direction := probeDirection(view)
	if err := e.tryProbe(ctx, symbol, direction, view, now); err != nil {
		return err
	}
	if err := e.advanceProbe(ctx, symbol, direction, view, now); err != nil {
		return err
	}
	return e.manageOpen(ctx, symbol, view, now)
}

func newM15View(candles []model.Candle, an *indicators.Analysis) m15View {
	last, _ := model.Last(candles)
	avgVol, _ := model.AvgVolume(candles, ledger.VolumeLookback)
	snap := an.Snapshots[model.TimeframeM15]
	return m15View{
		candles:   candles,
		snap:      snap,
		side:      an.Votes[model.TimeframeM15].Side(),
		price:     last.Close,
		avgVolume: avgVol,
		antiChase: ledger.IsAntiChase(snap.Close, snap.MA50, snap.ATR),
	}
}

// fetch loads every timeframe and rejects short or stale series.
func (e *Engine) fetch(ctx context.Context, symbol string, now time.Time) (map[model.Timeframe][]model.Candle, error) {
	out := make(map[model.Timeframe][]model.Candle, len(requirements))
	for _, req := range requirements {
		candles, err := e.source.Candles(ctx, symbol, req.tf, req.limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: fetch %s %s: %v", ErrInputQuality, symbol, req.tf, err)
		}
		if len(candles) < req.minBars {
			return nil, fmt.Errorf("%w: %s %s has %d bars, need %d", ErrInputQuality, symbol, req.tf, len(candles), req.minBars)
		}
		last, _ := model.Last(candles)
		if lag := now.Sub(last.Datetime); lag > maxLagBars*req.tf.BarDuration() {
			return nil, fmt.Errorf("%w: %s %s is stale, last bar %s (lag %s)",
				ErrInputQuality, symbol, req.tf, last.Datetime.Format(time.RFC3339), lag.Round(time.Second))
		}
		out[req.tf] = candles
	}

	if e.archive != nil {
		for tf, candles := range out {
			if err := e.archive.Upsert(ctx, symbol, tf, candles); err != nil {
				e.logger.WithError(err).WithFields(map[string]interface{}{
					"symbol":    symbol,
					"timeframe": tf,
				}).Warn("Failed to archive candles")
			}
		}
	}
	return out, nil
}

// probeDirection follows the M15 vote; a neutral vote defers to the last candle.
func probeDirection(v m15View) model.Side {
	if v.side.IsDirectional() {
		return v.side
	}
	last, ok := model.Last(v.candles)
	if !ok {
		return model.SideNeutral
	}
	return last.Direction()
}

func (e *Engine) alertConfirmed(ctx context.Context, symbol string, res model.GateResult, v m15View, now time.Time) {
	sl, tp := tp_sl.SignalLevels(res.Side, v.price, decimal.NewFromFloat(v.snap.ATR),
		e.cfg.SignalPlan.SLATR, e.cfg.SignalPlan.TPR)
	decision := e.entries.Evaluate(symbol, model.TimeframeM15, res.Side, v.price, decimal.NewNullDecimal(sl), tp, now)
	if !decision.Allow {
		return
	}
	e.signals.Register(symbol, res.Side, now)

	var b strings.Builder
	if decision.Warning != "" {
		fmt.Fprintf(&b, "WARNING %s\n", decision.Warning)
	}
	fmt.Fprintf(&b, "**%s %s confirmed (M15)**\n", model.NormalizeSymbol(symbol), res.Side)
	fmt.Fprintf(&b, "Entry: %s | SL: %s | TP: %s\n", v.price.String(), sl.StringFixed(6), tp.StringFixed(6))
	fmt.Fprintf(&b, "M15 %.2f | H1 %.2f | heavy %d | ADX(H1) %.1f | anti-chase %s",
		res.M15Score, res.H1Score, res.HeavyHits, res.ADXH1, yesNo(v.antiChase))
	e.notify(ctx, "signal", b.String())
}

// tryProbe opens a probe on a breakout candle in direction unless one is
// already open or the symbol is cooling down after a close.
func (e *Engine) tryProbe(ctx context.Context, symbol string, direction model.Side, v m15View, now time.Time) error {
	if !direction.IsDirectional() || !ledger.IsBreakout(v.candles, v.snap.ATR, v.snap.EMA200, direction) {
		return nil
	}
	if _, ok := e.ledger.Get(symbol, direction); ok {
		return nil
	}
	log := e.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"direction": direction,
	})
	if e.cooldown.Active(symbol, now) {
		log.WithField("remaining", e.cooldown.Remaining(symbol, now).String()).Info("Breakout ignored, symbol cooling down")
		return nil
	}

	p, err := e.ledger.OpenProbe(symbol, direction, v.price, v.antiChase, now)
	switch {
	case errors.Is(err, ledger.ErrBelowMinNotional):
		log.WithError(err).Warn("Probe skipped")
		e.notify(ctx, "capital", fmt.Sprintf("Capital too small to open a probe on %s %s. Balance: %s, minimum: %s",
			model.NormalizeSymbol(symbol), direction,
			e.ledger.Balance().StringFixed(2), e.ledger.Config().MinNotional.String()))
		return nil
	case err != nil:
		return fmt.Errorf("open probe %s %s: %w", symbol, direction, err)
	}
	e.metrics.PositionOpened(string(model.StageProbe))

	e.notify(ctx, "probe", fmt.Sprintf("Breakout on %s, probe %s opened. Entry: %s | TP: %s | size %s (Anti-chase: %s)",
		p.Symbol, direction, p.Entry.String(), p.TakeProfit.StringFixed(6), p.Size.StringFixed(2), yesNo(v.antiChase)))
	e.audit(ctx, &model.SignalAudit{
		Timestamp: now,
		Symbol:    p.Symbol,
		Phase:     model.AuditPhaseProbeBreakout,
		Side:      string(direction),
		AntiChase: v.antiChase,
		Decision:  fmt.Sprintf("probe_breakout_%s", strings.ToLower(string(direction))),
		Breakdown: marshalBreakdown(map[string]interface{}{
			"entry": p.Entry.String(),
			"tp":    p.TakeProfit.String(),
			"size":  p.Size.String(),
		}),
	})
	return nil
}

// advanceProbe promotes or traps the probe held in direction.
func (e *Engine) advanceProbe(ctx context.Context, symbol string, direction model.Side, v m15View, now time.Time) error {
	p, ok := e.ledger.Get(symbol, direction)
	if !ok || p.Stage != model.StageProbe {
		return nil
	}
	outcome, err := e.ledger.Advance(ctx, p, v.market(), now)
	if err != nil && !errors.Is(err, ledger.ErrBelowMinNotional) {
		return fmt.Errorf("advance probe %s: %w", p.ID, err)
	}
	if outcome == ledger.PromotionDone {
		e.metrics.PositionOpened(string(model.StageFull))
		e.notify(ctx, "promote", fmt.Sprintf("%s %s promoted to FULL after a confirmed pullback. Price: %s | entry %s | size %s",
			p.Symbol, p.Direction, v.price.String(), p.Entry.StringFixed(6), p.Size.StringFixed(2)))
	}
	return nil
}

func (e *Engine) auditScan(ctx context.Context, symbol string, res model.GateResult, stable bool, v m15View, an *indicators.Analysis, now time.Time) {
	breakdown := map[string]interface{}{}
	for k, val := range an.Votes[model.TimeframeM15].Breakdown() {
		breakdown["m15_"+k] = val
	}
	for k, val := range an.Votes[model.TimeframeH1].Breakdown() {
		breakdown["h1_"+k] = val
	}
	e.audit(ctx, &model.SignalAudit{
		Timestamp: now,
		Symbol:    model.NormalizeSymbol(symbol),
		Phase:     model.AuditPhaseScan,
		Side:      string(res.Side),
		M15Score:  res.M15Score,
		H1Score:   res.H1Score,
		HeavyHits: res.HeavyHits,
		ADXH1:     res.ADXH1,
		AntiChase: v.antiChase,
		Passed:    res.Passed,
		Stable:    stable,
		Decision:  fmt.Sprintf("full_ready=%t; stable=%t;", res.Passed && stable, stable),
		TrendH1:   an.TrendH1,
		TrendD1:   an.TrendD1,
		Failures:  strings.Join(res.Failures, "; "),
		Breakdown: marshalBreakdown(breakdown),
	})
}

func (e *Engine) audit(ctx context.Context, row *model.SignalAudit) {
	if e.audits == nil {
		return
	}
	if err := e.audits.Create(ctx, row); err != nil {
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": row.Symbol,
			"phase":  row.Phase,
		}).Warn("Failed to write signal audit")
	}
}

func marshalBreakdown(v map[string]interface{}) string {
	if len(v) == 0 {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
