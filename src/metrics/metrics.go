// Package metrics exposes the engine's Prometheus collectors:
//
//	signalengine_tick_duration_seconds          tick wall time
//	signalengine_symbol_skips_total{reason}     input_quality | computation
//	signalengine_gate_evaluations_total{result} passed | failed
//	signalengine_alerts_total{kind}             notifications sent
//	signalengine_positions_opened_total{stage}  PROBE | FULL (promotions)
//	signalengine_positions_closed_total{reason} TP | SL | REVERSE | TRAP | ...
//	signalengine_open_positions                 gauge
//	signalengine_balance                        simulated free balance
//	signalengine_realized_pnl                   cumulative net PnL
//
// Every method is a no-op on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	tickDuration    prometheus.Histogram
	symbolSkips     *prometheus.CounterVec
	gateEvaluations *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	opened          *prometheus.CounterVec
	closed          *prometheus.CounterVec
	openPositions   prometheus.Gauge
	balance         prometheus.Gauge
	realizedPnL     prometheus.Gauge
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalengine_tick_duration_seconds",
			Help:    "Wall time of one engine tick",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		symbolSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_symbol_skips_total",
			Help: "Symbols skipped in a tick, by reason",
		}, []string{"reason"}),
		gateEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_gate_evaluations_total",
			Help: "Gate evaluations by result",
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_alerts_total",
			Help: "Notifications sent, by kind",
		}, []string{"kind"}),
		opened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_positions_opened_total",
			Help: "Probe openings and full promotions",
		}, []string{"stage"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_positions_closed_total",
			Help: "Closed positions by close reason",
		}, []string{"reason"}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_open_positions",
			Help: "Currently open simulated positions",
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_balance",
			Help: "Free simulated balance",
		}),
		realizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_realized_pnl",
			Help: "Cumulative realized PnL net of fees",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.tickDuration, m.symbolSkips, m.gateEvaluations, m.alerts,
			m.opened, m.closed, m.openPositions, m.balance, m.realizedPnL,
		)
	}
	return m
}

func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(seconds)
}

func (m *Metrics) SymbolSkipped(reason string) {
	if m == nil {
		return
	}
	m.symbolSkips.WithLabelValues(reason).Inc()
}

func (m *Metrics) GateEvaluated(passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.gateEvaluations.WithLabelValues(result).Inc()
}

func (m *Metrics) AlertSent(kind string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(kind).Inc()
}

func (m *Metrics) PositionOpened(stage string) {
	if m == nil {
		return
	}
	m.opened.WithLabelValues(stage).Inc()
}

func (m *Metrics) PositionClosed(reason string, realizedPnL float64) {
	if m == nil {
		return
	}
	m.closed.WithLabelValues(reason).Inc()
	m.realizedPnL.Add(realizedPnL)
}

// SetBook publishes the ledger snapshot.
func (m *Metrics) SetBook(open int, balance float64) {
	if m == nil {
		return
	}
	m.openPositions.Set(float64(open))
	m.balance.Set(balance)
}
