package dedup

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"signalengine/src/model"
)

var hundred = decimal.NewFromInt(100)

type entryKey struct {
	symbol    string
	timeframe model.Timeframe
}

// Decision is the verdict for one new-entry notification.
type Decision struct {
	Allow   bool
	Warning string
}

// EntryGate suppresses repeated new-entry alerts per (symbol, timeframe).
// Records are replaced on every accepted alert and dropped by Forget when
// the position closes.
type EntryGate struct {
	MinInterval time.Duration
	MinDiffPct  decimal.Decimal

	records map[entryKey]model.SentSideRecord
	logger  *logrus.Entry
}

func NewEntryGate(minInterval time.Duration, minDiffPct float64, log *logrus.Entry) *EntryGate {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &EntryGate{
		MinInterval: minInterval,
		MinDiffPct:  decimal.NewFromFloat(minDiffPct),
		records:     make(map[entryKey]model.SentSideRecord),
		logger:      log.WithField("component", "entry_dedup"),
	}
}

// Evaluate decides whether a new-entry alert may be sent and records it when allowed.
// A same-direction alert is suppressed while the last one is younger than
// MinInterval, or when entry, stop and target all moved less than MinDiffPct.
func (g *EntryGate) Evaluate(
	symbol string,
	tf model.Timeframe,
	direction model.Side,
	entry decimal.Decimal,
	sl decimal.NullDecimal,
	tp decimal.Decimal,
	now time.Time,
) Decision {
	k := entryKey{model.NormalizeSymbol(symbol), tf}
	next := model.SentSideRecord{Direction: direction, SentAt: now, Entry: entry, StopLoss: sl, TakeProfit: tp}

	last, ok := g.records[k]
	if !ok {
		g.records[k] = next
		return Decision{Allow: true}
	}

	if last.Direction != direction {
		g.records[k] = next
		return Decision{
			Allow:   true,
			Warning: fmt.Sprintf("REVERSAL %s %s: %s -> %s", k.symbol, tf, last.Direction, direction),
		}
	}

	log := g.logger.WithFields(map[string]interface{}{
		"symbol":    k.symbol,
		"timeframe": tf,
		"direction": direction,
	})

	if elapsed := now.Sub(last.SentAt); elapsed < g.MinInterval {
		log.WithField("elapsed", elapsed.String()).Debug("Entry alert suppressed, inside min interval")
		return Decision{Allow: false}
	}

	entryDiff := PctDiff(entry, last.Entry)
	slDiff := PctDiffOptional(sl, last.StopLoss)
	tpDiff := PctDiff(tp, last.TakeProfit)
	if entryDiff.LessThan(g.MinDiffPct) && slDiff.LessThan(g.MinDiffPct) && tpDiff.LessThan(g.MinDiffPct) {
		log.WithFields(map[string]interface{}{
			"entry_diff_pct": entryDiff.StringFixed(4),
			"sl_diff_pct":    slDiff.StringFixed(4),
			"tp_diff_pct":    tpDiff.StringFixed(4),
		}).Debug("Entry alert suppressed, levels barely moved")
		return Decision{Allow: false}
	}

	g.records[k] = next
	return Decision{Allow: true}
}

// Forget drops the record for (symbol, timeframe) if it holds direction.
func (g *EntryGate) Forget(symbol string, tf model.Timeframe, direction model.Side) {
	k := entryKey{model.NormalizeSymbol(symbol), tf}
	if rec, ok := g.records[k]; ok && rec.Direction == direction {
		delete(g.records, k)
	}
}

func (g *EntryGate) Record(symbol string, tf model.Timeframe) (model.SentSideRecord, bool) {
	rec, ok := g.records[entryKey{model.NormalizeSymbol(symbol), tf}]
	return rec, ok
}

// PctDiff is |next-prev| / max(|prev|, 1) * 100.
func PctDiff(next, prev decimal.Decimal) decimal.Decimal {
	den := decimal.Max(prev.Abs(), decimal.NewFromInt(1))
	return next.Sub(prev).Abs().Div(den).Mul(hundred)
}

// PctDiffOptional treats two missing levels as equal and one missing level as a full change.
func PctDiffOptional(next, prev decimal.NullDecimal) decimal.Decimal {
	switch {
	case !next.Valid && !prev.Valid:
		return decimal.Zero
	case next.Valid != prev.Valid:
		return hundred
	default:
		return PctDiff(next.Decimal, prev.Decimal)
	}
}
