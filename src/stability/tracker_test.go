package stability

import (
	"context"
	"errors"
	"testing"
	"time"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/model"
)

type memStore struct {
	saved   map[string]model.StabilityState
	fail    bool
	upserts int
}

func newMemStore() *memStore { return &memStore{saved: map[string]model.StabilityState{}} }

func (m *memStore) LoadAll(context.Context) ([]model.StabilityState, error) {
	out := make([]model.StabilityState, 0, len(m.saved))
	for _, st := range m.saved {
		out = append(out, st)
	}
	return out, nil
}

func (m *memStore) Upsert(_ context.Context, states ...model.StabilityState) error {
	m.upserts++
	if m.fail {
		return errors.New("disk full")
	}
	for _, st := range states {
		m.saved[st.Symbol+"|"+st.Timeframe] = st
	}
	return nil
}

func newTestTracker(store Store) *Tracker {
	log, _ := logrustest.NewNullLogger()
	return NewTracker(store, 30*time.Second, 2, log.WithField("test", true))
}

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestTracker_MinGapScenario(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(newMemStore())

	assert.False(t, tr.Update(ctx, "BTC/USDT", model.TimeframeM15, model.SideLong, true, t0))
	st, _ := tr.State("BTCUSDT", model.TimeframeM15)
	assert.Equal(t, 1, st.ConsecutivePasses)

	// 10s later: ignored, spacing below min gap
	assert.False(t, tr.Update(ctx, "BTC/USDT", model.TimeframeM15, model.SideLong, true, t0.Add(10*time.Second)))
	st, _ = tr.State("BTCUSDT", model.TimeframeM15)
	assert.Equal(t, 1, st.ConsecutivePasses)
	assert.Equal(t, t0, st.LastPassAt)

	assert.True(t, tr.Update(ctx, "BTC/USDT", model.TimeframeM15, model.SideLong, true, t0.Add(40*time.Second)))
	assert.True(t, tr.IsStable("btc_usdt", model.TimeframeM15))
}

func TestTracker_ResetOnFailureAndFlip(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(newMemStore())

	tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideLong, true, t0)
	require.True(t, tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideLong, true, t0.Add(time.Minute)))

	// failure resets on the same tick
	assert.False(t, tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideLong, false, t0.Add(2*time.Minute)))
	st, _ := tr.State("ETHUSDT", model.TimeframeM15)
	assert.Equal(t, 0, st.ConsecutivePasses)
	assert.Equal(t, model.SideNeutral, st.Side)

	tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideLong, true, t0.Add(3*time.Minute))
	tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideLong, true, t0.Add(4*time.Minute))
	require.True(t, tr.IsStable("ETHUSDT", model.TimeframeM15))

	// flip restarts the count at one, even inside the min gap
	assert.False(t, tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideShort, true, t0.Add(4*time.Minute+time.Second)))
	st, _ = tr.State("ETHUSDT", model.TimeframeM15)
	assert.Equal(t, 1, st.ConsecutivePasses)
	assert.Equal(t, model.SideShort, st.Side)
}

func TestTracker_NeutralPassResets(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(newMemStore())

	tr.Update(ctx, "SOLUSDT", model.TimeframeM15, model.SideLong, true, t0)
	tr.Update(ctx, "SOLUSDT", model.TimeframeM15, model.SideNeutral, true, t0.Add(time.Minute))

	st, _ := tr.State("SOLUSDT", model.TimeframeM15)
	assert.Equal(t, 0, st.ConsecutivePasses)
	assert.Equal(t, model.SideNeutral, st.Side)
}

func TestTracker_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(newMemStore())

	tr.Update(ctx, "BTCUSDT", model.TimeframeM15, model.SideLong, true, t0)
	tr.Update(ctx, "BTCUSDT", model.TimeframeM15, model.SideLong, true, t0.Add(time.Minute))
	tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideLong, false, t0.Add(time.Minute))

	assert.True(t, tr.IsStable("BTCUSDT", model.TimeframeM15))
	assert.False(t, tr.IsStable("BTCUSDT", model.TimeframeH1))
	assert.False(t, tr.IsStable("ETHUSDT", model.TimeframeM15))
}

func TestTracker_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tr := newTestTracker(store)

	tr.Update(ctx, "BTCUSDT", model.TimeframeM15, model.SideShort, true, t0)
	tr.Update(ctx, "BTCUSDT", model.TimeframeM15, model.SideShort, true, t0.Add(time.Minute))

	restarted := newTestTracker(store)
	require.NoError(t, restarted.Load(ctx))
	assert.True(t, restarted.IsStable("BTCUSDT", model.TimeframeM15))

	st, ok := restarted.State("BTCUSDT", model.TimeframeM15)
	require.True(t, ok)
	assert.Equal(t, model.SideShort, st.Side)
	assert.Equal(t, t0.Add(time.Minute), st.LastPassAt)
}

func TestTracker_LoadRepairsInvariant(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.saved["BTCUSDT|15m"] = model.StabilityState{Symbol: "BTCUSDT", Timeframe: "15m", Side: model.SideNeutral, ConsecutivePasses: 3}

	tr := newTestTracker(store)
	require.NoError(t, tr.Load(ctx))

	st, _ := tr.State("BTCUSDT", model.TimeframeM15)
	assert.Equal(t, 0, st.ConsecutivePasses)
}

func TestTracker_WriteFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.fail = true
	tr := newTestTracker(store)

	tr.Update(ctx, "BTCUSDT", model.TimeframeM15, model.SideLong, true, t0)
	assert.Empty(t, store.saved)
	assert.True(t, tr.Update(ctx, "BTCUSDT", model.TimeframeM15, model.SideLong, true, t0.Add(time.Minute)), "state survives in memory")

	store.fail = false
	tr.Update(ctx, "ETHUSDT", model.TimeframeM15, model.SideLong, true, t0.Add(2*time.Minute))

	require.Contains(t, store.saved, "BTCUSDT|15m")
	assert.Equal(t, 2, store.saved["BTCUSDT|15m"].ConsecutivePasses)
	assert.Contains(t, store.saved, "ETHUSDT|15m")
}
