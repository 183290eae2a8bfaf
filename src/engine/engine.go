package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"signalengine/src/advisor"
	"signalengine/src/config"
	"signalengine/src/controller"
	"signalengine/src/dedup"
	"signalengine/src/executors"
	"signalengine/src/gate"
	"signalengine/src/indicators"
	"signalengine/src/ledger"
	"signalengine/src/metrics"
	"signalengine/src/model"
	"signalengine/src/stability"
	"signalengine/src/tp_sl"
)

const serviceName = "signalengine"

// CandleSource returns the most recent limit candles of symbol, oldest first.
type CandleSource interface {
	Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error)
}

// Notifier delivers alerts to the operator channel.
type Notifier interface {
	Text(ctx context.Context, content string) error
	File(ctx context.Context, filename string, data []byte, caption string) error
}

type AuditStore interface {
	Create(ctx context.Context, row *model.SignalAudit) error
}

type TradeStore interface {
	Create(ctx context.Context, row *model.TradeLog) error
	ListByDate(ctx context.Context, day time.Time) ([]model.TradeLog, error)
}

// CandleArchive keeps a copy of every fetched series.
type CandleArchive interface {
	Upsert(ctx context.Context, symbol string, tf model.Timeframe, candles []model.Candle) error
}

// Deps are the collaborators of the engine. Source and Notifier are
// required, every other field is optional.
type Deps struct {
	Source     CandleSource
	Notifier   Notifier
	StateStore stability.Store
	Audits     AuditStore
	Trades     TradeStore
	Exceptions controller.ExceptionStore
	Archive    CandleArchive
	Metrics    *metrics.Metrics
	ReportDir  string
	Profile    string
	Now        func() time.Time
}

// Engine drives the gate, stability and position lifecycle across the
// configured symbols once per tick. Ticks run sequentially; only Snapshot
// may be called from other goroutines.
type Engine struct {
	cfg        *config.Strategy
	thresholds gate.Thresholds
	profile    string

	source     CandleSource
	notifier   Notifier
	audits     AuditStore
	trades     TradeStore
	exceptions controller.ExceptionStore
	archive    CandleArchive
	metrics    *metrics.Metrics
	reportDir  string

	analyzer *indicators.Analyzer
	tracker  *stability.Tracker
	entries  *dedup.EntryGate
	warnings *dedup.CloseWarnings
	cooldown *dedup.Cooldown
	ledger   *ledger.Ledger
	advisor  *advisor.Advisor
	signals  *activeSignals
	reported map[string]bool

	now    func() time.Time
	logger *logrus.Entry

	mu   sync.RWMutex
	book model.BookSnapshot
}

func New(cfg *config.Strategy, deps Deps, log *logrus.Entry) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("strategy config is nil")
	}
	if deps.Source == nil {
		return nil, errors.New("candle source not set")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier not set")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	e := &Engine{
		cfg: cfg,
		thresholds: gate.Thresholds{
			M15ScoreMin:   cfg.Thresholds.M15,
			H1ScoreMin:    cfg.Thresholds.H1,
			HeavyRequired: cfg.TightMode.HeavyRequired,
			ADXMin:        cfg.ADXH1Threshold,
		},
		profile:    deps.Profile,
		source:     deps.Source,
		notifier:   deps.Notifier,
		audits:     deps.Audits,
		trades:     deps.Trades,
		exceptions: deps.Exceptions,
		archive:    deps.Archive,
		metrics:    deps.Metrics,
		reportDir:  deps.ReportDir,
		analyzer:   indicators.NewAnalyzer(cfg.WeightsSets),
		tracker:    stability.NewTracker(deps.StateStore, cfg.MinGap(), cfg.TightMode.SnapshotConfirmations, log),
		entries:    dedup.NewEntryGate(cfg.EntryMinInterval(), cfg.Dedup.MinDiffPct, log),
		warnings:   dedup.NewCloseWarnings(),
		cooldown:   dedup.NewCooldown(model.TimeframeM15.BarDuration()),
		ledger:     ledger.New(LedgerConfig(cfg), log),
		advisor: advisor.New(advisor.Config{
			WeakADX:     cfg.Advisor.WeakADX,
			RSILow:      cfg.Advisor.RSILow,
			RSIHigh:     cfg.Advisor.RSIHigh,
			MaxHoldBars: cfg.Advisor.MaxHoldBars,
		}),
		signals:  newActiveSignals(),
		reported: make(map[string]bool),
		now:      deps.Now,
		logger:   log.WithField("component", "engine"),
	}
	e.ledger.OnClose(e.onClose)
	e.publish(time.Time{})
	return e, nil
}

// LedgerConfig maps the strategy file onto the simulated account.
func LedgerConfig(cfg *config.Strategy) ledger.Config {
	tiers := make([]tp_sl.Tier, 0, len(cfg.TrailingSteps))
	for _, s := range cfg.TrailingSteps {
		tiers = append(tiers, tp_sl.NewTier(s.ROI, s.Lock))
	}
	return ledger.Config{
		Capital:            decimal.NewFromFloat(cfg.Trading.Capital),
		Leverage:           decimal.NewFromFloat(cfg.Trading.Leverage),
		FeeBps:             decimal.NewFromFloat(cfg.Trading.FeeBps),
		ProbePct:           decimal.NewFromFloat(cfg.Trading.ProbePct),
		FullPct:            decimal.NewFromFloat(cfg.Trading.FullPct),
		EarlySizeRatio:     decimal.NewFromFloat(cfg.ProbeEarlySizeRatio),
		MinNotional:        decimal.NewFromFloat(cfg.Risk.MinNotional),
		PullbackATR:        cfg.PromotePullbackATR,
		MaxHoldBars:        cfg.Trading.MaxHoldBars,
		AutoCloseOnWarning: cfg.AutoCloseOnWarningIfPnLPositive,
		Tiers:              tiers,
	}
}

// Run restores the stability state, announces the start and ticks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.tracker.Load(ctx); err != nil {
		return fmt.Errorf("load stability state: %w", err)
	}
	e.notify(ctx, "startup", fmt.Sprintf("engine started profile=%s", e.profile))

	return executors.StartLoop(ctx, executors.Loop{
		Interval: e.cfg.Interval(),
		Timeout:  e.cfg.TickTimeout(),
		Tick:     e.RunOnce,
		OnPanic:  e.capturePanic,
		Now:      e.now,
		Log:      e.logger,
	})
}

// RunOnce evaluates every configured symbol in order, then the daily report.
// Per-symbol failures are logged and never abort the tick; only an expired
// tick context does.
func (e *Engine) RunOnce(ctx context.Context, now time.Time) error {
	started := time.Now()
	defer func() {
		e.publish(now)
		e.metrics.ObserveTick(time.Since(started).Seconds())
	}()

	for _, symbol := range e.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := e.processSymbol(ctx, symbol, now)
		if err == nil {
			continue
		}

		log := e.logger.WithError(err).WithField("symbol", symbol)
		switch {
		case errors.Is(err, ErrInputQuality):
			e.metrics.SymbolSkipped("input_quality")
			log.Warn("Symbol skipped, input data unusable")
		case errors.Is(err, ErrComputation):
			e.metrics.SymbolSkipped("computation")
			log.Warn("Symbol skipped, indicators unavailable")
		case ctx.Err() != nil:
			return err
		default:
			log.Error("Symbol processing failed")
			controller.Capture(ctx, e.exceptions, serviceName, "engine", "RunOnce", "error", err,
				map[string]interface{}{"symbol": symbol, "tick": now.Format(time.RFC3339)})
		}
	}

	e.maybeReport(ctx, now)
	return nil
}

func (e *Engine) capturePanic(ctx context.Context, recovered interface{}) {
	controller.Capture(ctx, e.exceptions, serviceName, "engine", "tick", "critical",
		fmt.Errorf("panic: %v", recovered), nil)
}

// Snapshot returns the book as of the last finished tick.
func (e *Engine) Snapshot() model.BookSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book
}

func (e *Engine) publish(at time.Time) {
	open := e.ledger.OpenPositions("")
	book := model.BookSnapshot{
		Balance:       e.ledger.Balance(),
		Open:          make([]model.Position, 0, len(open)),
		ActiveSignals: e.signals.List(),
		LastTickAt:    at,
	}
	for _, p := range open {
		cp := *p
		if p.TrailingApplied != nil {
			cp.TrailingApplied = make(map[string]bool, len(p.TrailingApplied))
			for k, v := range p.TrailingApplied {
				cp.TrailingApplied[k] = v
			}
		}
		book.Open = append(book.Open, cp)
	}

	e.mu.Lock()
	e.book = book
	e.mu.Unlock()

	balance, _ := book.Balance.Float64()
	e.metrics.SetBook(len(book.Open), balance)
}

// notify sends content and counts it under kind. Delivery failures are logged only.
func (e *Engine) notify(ctx context.Context, kind, content string) {
	if err := e.notifier.Text(ctx, content); err != nil {
		e.logger.WithError(err).WithField("kind", kind).Warn("Failed to send notification")
		return
	}
	e.metrics.AlertSent(kind)
}
