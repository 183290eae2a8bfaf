package stability

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"signalengine/src/model"
)

// Store persists stability states. LoadAll is called once at startup and
// Upsert after every change.
type Store interface {
	LoadAll(ctx context.Context) ([]model.StabilityState, error)
	Upsert(ctx context.Context, states ...model.StabilityState) error
}

type key struct {
	symbol    string
	timeframe model.Timeframe
}

// Tracker debounces gate passes per (symbol, timeframe). A pass is counted
// only when it repeats the stored side at least MinGap after the last counted one.
type Tracker struct {
	MinGap         time.Duration
	RequiredPasses int

	store  Store
	states map[key]*model.StabilityState
	dirty  map[key]struct{}
	logger *logrus.Entry
}

func NewTracker(store Store, minGap time.Duration, requiredPasses int, log *logrus.Entry) *Tracker {
	if requiredPasses < 1 {
		requiredPasses = 1
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Tracker{
		MinGap:         minGap,
		RequiredPasses: requiredPasses,
		store:          store,
		states:         make(map[key]*model.StabilityState),
		dirty:          make(map[key]struct{}),
		logger:         log.WithField("component", "stability"),
	}
}

// Load restores every persisted state. States violating the
// passes>0 => directional side invariant are reset.
func (t *Tracker) Load(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	states, err := t.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	for i := range states {
		st := states[i]
		st.Symbol = model.NormalizeSymbol(st.Symbol)
		if st.ConsecutivePasses > 0 && !st.Side.IsDirectional() {
			st.ConsecutivePasses = 0
			st.Side = model.SideNeutral
		}
		t.states[key{st.Symbol, model.Timeframe(st.Timeframe)}] = &st
	}
	t.logger.WithField("count", len(states)).Info("Stability states loaded")
	return nil
}

// Update applies one gate evaluation and reports whether the key is stable afterwards.
func (t *Tracker) Update(ctx context.Context, symbol string, tf model.Timeframe, side model.Side, passed bool, now time.Time) bool {
	k := key{model.NormalizeSymbol(symbol), tf}
	st, ok := t.states[k]
	if !ok {
		st = &model.StabilityState{Symbol: k.symbol, Timeframe: string(tf), Side: model.SideNeutral}
		t.states[k] = st
	}

	changed := false
	switch {
	case !passed || !side.IsDirectional():
		if st.ConsecutivePasses != 0 || st.Side != model.SideNeutral {
			st.ConsecutivePasses = 0
			st.Side = model.SideNeutral
			changed = true
		}
	case st.ConsecutivePasses == 0 || st.Side != side:
		st.Side = side
		st.ConsecutivePasses = 1
		st.LastPassAt = now
		changed = true
	case now.Sub(st.LastPassAt) < t.MinGap:
		// too close to the last counted pass
	default:
		st.ConsecutivePasses++
		st.LastPassAt = now
		changed = true
	}

	if changed {
		st.UpdatedAt = now
		t.dirty[k] = struct{}{}
		t.flush(ctx)
	}

	return st.ConsecutivePasses >= t.RequiredPasses
}

// IsStable reports the current debounce verdict without mutating state.
func (t *Tracker) IsStable(symbol string, tf model.Timeframe) bool {
	st, ok := t.states[key{model.NormalizeSymbol(symbol), tf}]
	return ok && st.ConsecutivePasses >= t.RequiredPasses
}

// State returns a copy of the tracked state.
func (t *Tracker) State(symbol string, tf model.Timeframe) (model.StabilityState, bool) {
	st, ok := t.states[key{model.NormalizeSymbol(symbol), tf}]
	if !ok {
		return model.StabilityState{}, false
	}
	return *st, true
}

// flush writes every dirty key. Failed keys stay dirty for the next write.
func (t *Tracker) flush(ctx context.Context) {
	if t.store == nil || len(t.dirty) == 0 {
		return
	}
	batch := make([]model.StabilityState, 0, len(t.dirty))
	for k := range t.dirty {
		batch = append(batch, *t.states[k])
	}
	if err := t.store.Upsert(ctx, batch...); err != nil {
		t.logger.WithError(err).WithField("pending", len(batch)).Warn("Failed to persist stability state, will retry")
		return
	}
	t.dirty = make(map[key]struct{})
}
