package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/tp_sl"
)

var (
	ErrPositionExists   = errors.New("position already open")
	ErrBelowMinNotional = errors.New("size below min notional")
	ErrInvalidStage     = errors.New("invalid stage for operation")
)

var bpsDivisor = decimal.NewFromInt(10000)

// Config holds the simulated account and sizing rules.
type Config struct {
	Capital            decimal.Decimal
	Leverage           decimal.Decimal
	FeeBps             decimal.Decimal
	ProbePct           decimal.Decimal
	FullPct            decimal.Decimal
	EarlySizeRatio     decimal.Decimal
	MinNotional        decimal.Decimal
	PullbackATR        float64
	MaxHoldBars        int
	AutoCloseOnWarning bool
	Tiers              []tp_sl.Tier
}

// CloseListener is notified once per position, right after it closes.
type CloseListener func(ctx context.Context, p *model.Position)

type posKey struct {
	symbol    string
	direction model.Side
}

// Ledger owns every simulated position. At most one open position exists
// per (symbol, direction); closed positions are kept for reporting.
type Ledger struct {
	cfg       Config
	balance   decimal.Decimal
	open      map[posKey]*model.Position
	history   []*model.Position
	listeners []CloseListener
	newID     func() string
	logger    *logrus.Entry
}

func New(cfg Config, log *logrus.Entry) *Ledger {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Leverage.LessThanOrEqual(decimal.Zero) {
		cfg.Leverage = decimal.NewFromInt(1)
	}
	return &Ledger{
		cfg:     cfg,
		balance: cfg.Capital,
		open:    make(map[posKey]*model.Position),
		newID:   uuid.NewString,
		logger:  log.WithField("component", "ledger"),
	}
}

func (l *Ledger) OnClose(fn CloseListener) {
	l.listeners = append(l.listeners, fn)
}

func (l *Ledger) Config() Config { return l.cfg }

// Balance is the free margin: capital minus committed margin plus realized PnL.
func (l *Ledger) Balance() decimal.Decimal { return l.balance }

// Get returns the open position for (symbol, direction).
func (l *Ledger) Get(symbol string, direction model.Side) (*model.Position, bool) {
	p, ok := l.open[posKey{model.NormalizeSymbol(symbol), direction}]
	return p, ok
}

// OpenPositions returns the open positions of symbol (all symbols when empty),
// oldest first, then by symbol and direction.
func (l *Ledger) OpenPositions(symbol string) []*model.Position {
	sym := model.NormalizeSymbol(symbol)
	out := make([]*model.Position, 0, len(l.open))
	for k, p := range l.open {
		if sym == "" || k.symbol == sym {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OpenedAt.Equal(b.OpenedAt) {
			return a.OpenedAt.Before(b.OpenedAt)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Direction < b.Direction
	})
	return out
}

// History returns every position ever opened, in opening order.
func (l *Ledger) History() []*model.Position {
	out := make([]*model.Position, len(l.history))
	copy(out, l.history)
	return out
}

func (l *Ledger) sizeFor(pct decimal.Decimal) (decimal.Decimal, error) {
	size := decimal.Max(l.balance.Mul(pct), decimal.Zero)
	if size.LessThan(l.cfg.MinNotional) {
		return size, fmt.Errorf("%w: %s < %s (balance %s)",
			ErrBelowMinNotional, size.StringFixed(4), l.cfg.MinNotional.String(), l.balance.StringFixed(4))
	}
	return size, nil
}

// OpenProbe opens the small first stage at price. extended selects the
// reduced early size used when price is already stretched from its mean.
func (l *Ledger) OpenProbe(symbol string, direction model.Side, price decimal.Decimal, extended bool, now time.Time) (*model.Position, error) {
	if !direction.IsDirectional() {
		return nil, fmt.Errorf("open probe: direction %s", direction)
	}
	k := posKey{model.NormalizeSymbol(symbol), direction}
	if p, ok := l.open[k]; ok {
		return nil, fmt.Errorf("%w: %s %s (%s)", ErrPositionExists, k.symbol, direction, p.Stage)
	}

	pct := l.cfg.ProbePct
	if extended {
		pct = l.cfg.EarlySizeRatio
	}
	size, err := l.sizeFor(pct)
	if err != nil {
		return nil, err
	}

	p := &model.Position{
		ID:         l.newID(),
		Symbol:     k.symbol,
		Direction:  direction,
		Stage:      model.StageProbe,
		Entry:      price,
		TakeProfit: tp_sl.LeverageTarget(direction, price, l.cfg.Leverage),
		Size:       size,
		ProbeSize:  size,
		OpenedAt:   now,
	}
	l.balance = l.balance.Sub(size)
	l.open[k] = p
	l.history = append(l.history, p)

	l.logger.WithFields(map[string]interface{}{
		"op":        "open_probe",
		"id":        p.ID,
		"symbol":    p.Symbol,
		"direction": direction,
		"entry":     price.String(),
		"size":      size.StringFixed(4),
		"extended":  extended,
	}).Info("Probe opened")
	return p, nil
}

// Promote scales a probe into a full position at price. The entry becomes
// the size-weighted average of the probe and the added size.
func (l *Ledger) Promote(p *model.Position, price decimal.Decimal, now time.Time) error {
	if p.Stage != model.StageProbe {
		return fmt.Errorf("%w: promote %s from %s", ErrInvalidStage, p.ID, p.Stage)
	}
	added, err := l.sizeFor(l.cfg.FullPct)
	if err != nil {
		return err
	}

	total := p.Size.Add(added)
	p.Entry = p.Entry.Mul(p.Size).Add(price.Mul(added)).Div(total)
	p.Size = total
	p.TakeProfit = tp_sl.LeverageTarget(p.Direction, p.Entry, l.cfg.Leverage)
	p.Stage = model.StageFull
	promotedAt := now
	p.PromotedAt = &promotedAt
	l.balance = l.balance.Sub(added)

	l.logger.WithFields(map[string]interface{}{
		"op":     "promote",
		"id":     p.ID,
		"symbol": p.Symbol,
		"entry":  p.Entry.StringFixed(6),
		"added":  added.StringFixed(4),
		"size":   p.Size.StringFixed(4),
	}).Info("Probe promoted to full")
	return nil
}

// Trail applies the trailing tiers to p at price.
func (l *Ledger) Trail(p *model.Position, price decimal.Decimal) []tp_sl.Tier {
	applied := tp_sl.ApplyTrailing(p, price, l.cfg.Tiers)
	if len(applied) > 0 {
		l.logger.WithFields(map[string]interface{}{
			"op":        "trail",
			"id":        p.ID,
			"symbol":    p.Symbol,
			"stop_loss": p.StopLoss.Decimal.StringFixed(6),
			"tiers":     len(applied),
		}).Info("Trailing stop tightened")
	}
	return applied
}

// Exposure is the leveraged notional of p.
func (l *Ledger) Exposure(p *model.Position) decimal.Decimal {
	return p.Size.Mul(l.cfg.Leverage)
}

// UnrealizedPnL is the gross mark-to-market PnL of p at price.
func (l *Ledger) UnrealizedPnL(p *model.Position, price decimal.Decimal) decimal.Decimal {
	return l.Exposure(p).Mul(p.ROI(price))
}

// Fees charged on entry and exit notional.
func (l *Ledger) Fees(p *model.Position) decimal.Decimal {
	return l.Exposure(p).Mul(l.cfg.FeeBps).Div(bpsDivisor).Mul(decimal.NewFromInt(2))
}

// HeldBars counts the M15 bars since p opened.
func (l *Ledger) HeldBars(p *model.Position, now time.Time) int {
	return model.TimeframeM15.BarsBetween(p.OpenedAt, now)
}

// Close terminates p at price. The margin and the realized PnL go back to
// the balance and every close listener runs once.
func (l *Ledger) Close(ctx context.Context, p *model.Position, price decimal.Decimal, reason model.CloseReason, now time.Time) error {
	if !p.IsOpen() {
		return fmt.Errorf("%w: close %s in %s", ErrInvalidStage, p.ID, p.Stage)
	}

	pnl := l.UnrealizedPnL(p, price).Sub(l.Fees(p))
	closedAt := now
	p.ClosePrice = price
	p.CloseReason = reason
	p.ClosedAt = &closedAt
	p.RealizedPnL = pnl
	p.Stage = model.StageClosed

	l.balance = l.balance.Add(p.Size).Add(pnl)
	delete(l.open, posKey{p.Symbol, p.Direction})

	l.logger.WithFields(map[string]interface{}{
		"op":      "close",
		"id":      p.ID,
		"symbol":  p.Symbol,
		"reason":  reason,
		"price":   price.String(),
		"pnl":     pnl.StringFixed(4),
		"balance": l.balance.StringFixed(4),
	}).Info("Position closed")

	for _, fn := range l.listeners {
		fn(ctx, p)
	}
	return nil
}
