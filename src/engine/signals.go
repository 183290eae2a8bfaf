package engine

import (
	"sort"
	"time"

	"signalengine/src/model"
)

type activeSignal struct {
	side    model.Side
	alerted time.Time
}

// activeSignals tracks the symbols with a confirmed alert whose position has not closed yet.
type activeSignals struct {
	bySymbol map[string]activeSignal
}

func newActiveSignals() *activeSignals {
	return &activeSignals{bySymbol: make(map[string]activeSignal)}
}

func (a *activeSignals) Register(symbol string, side model.Side, at time.Time) {
	a.bySymbol[model.NormalizeSymbol(symbol)] = activeSignal{side: side, alerted: at}
}

func (a *activeSignals) Forget(symbol string) {
	delete(a.bySymbol, model.NormalizeSymbol(symbol))
}

func (a *activeSignals) Has(symbol string) bool {
	_, ok := a.bySymbol[model.NormalizeSymbol(symbol)]
	return ok
}

// List returns "SYMBOL:SIDE" entries sorted by symbol.
func (a *activeSignals) List() []string {
	out := make([]string, 0, len(a.bySymbol))
	for symbol, s := range a.bySymbol {
		out = append(out, symbol+":"+string(s.side))
	}
	sort.Strings(out)
	return out
}
