package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newGate() *EntryGate {
	log, _ := logrustest.NewNullLogger()
	return NewEntryGate(15*time.Minute, 0.3, log.WithField("test", true))
}

func TestEntryGate_FirstAlertAllowed(t *testing.T) {
	g := newGate()

	dec := g.Evaluate("BTC/USDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("110"), t0)
	assert.True(t, dec.Allow)
	assert.Empty(t, dec.Warning)

	rec, ok := g.Record("BTCUSDT", model.TimeframeM15)
	require.True(t, ok)
	assert.Equal(t, model.SideLong, rec.Direction)
}

func TestEntryGate_SuppressedInsideInterval(t *testing.T) {
	g := newGate()
	g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("110"), t0)

	dec := g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100.2"), nd("95"), d("110"), t0.Add(5*time.Minute))
	assert.False(t, dec.Allow)

	// even a large move is suppressed while the interval is running
	dec = g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("120"), nd("110"), d("140"), t0.Add(14*time.Minute))
	assert.False(t, dec.Allow)
}

func TestEntryGate_SuppressedWhenLevelsBarelyMove(t *testing.T) {
	g := newGate()
	g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("110"), t0)

	dec := g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100.2"), nd("95.1"), d("110.1"), t0.Add(20*time.Minute))
	assert.False(t, dec.Allow)

	rec, _ := g.Record("BTCUSDT", model.TimeframeM15)
	assert.True(t, rec.SentAt.Equal(t0), "suppressed alerts do not replace the record")
}

func TestEntryGate_AllowedWhenAnyLevelMoves(t *testing.T) {
	g := newGate()
	g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("110"), t0)

	dec := g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("111"), t0.Add(20*time.Minute))
	assert.True(t, dec.Allow)

	rec, _ := g.Record("BTCUSDT", model.TimeframeM15)
	assert.True(t, rec.TakeProfit.Equal(d("111")))
}

func TestEntryGate_ReversalWarns(t *testing.T) {
	g := newGate()
	g.Evaluate("ETHUSDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("110"), t0)

	dec := g.Evaluate("ETH/USDT", model.TimeframeM15, model.SideShort, d("100"), nd("105"), d("90"), t0.Add(time.Minute))
	assert.True(t, dec.Allow)
	assert.Contains(t, dec.Warning, "LONG -> SHORT")
}

func TestEntryGate_Forget(t *testing.T) {
	g := newGate()
	g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("110"), t0)

	g.Forget("BTCUSDT", model.TimeframeM15, model.SideShort)
	_, ok := g.Record("BTCUSDT", model.TimeframeM15)
	assert.True(t, ok, "other direction keeps the record")

	g.Forget("BTC-USDT", model.TimeframeM15, model.SideLong)
	_, ok = g.Record("BTCUSDT", model.TimeframeM15)
	assert.False(t, ok)

	dec := g.Evaluate("BTCUSDT", model.TimeframeM15, model.SideLong, d("100"), nd("95"), d("110"), t0.Add(time.Minute))
	assert.True(t, dec.Allow)
}

func TestPctDiff(t *testing.T) {
	assert.True(t, PctDiff(d("100.2"), d("100")).Equal(d("0.2")))
	// denominator floor of 1 for tiny prices
	assert.True(t, PctDiff(d("0.5"), d("0")).Equal(d("50")))

	assert.True(t, PctDiffOptional(decimal.NullDecimal{}, decimal.NullDecimal{}).IsZero())
	assert.True(t, PctDiffOptional(nd("95"), decimal.NullDecimal{}).Equal(d("100")))
	assert.True(t, PctDiffOptional(nd("95"), nd("95")).IsZero())
}
