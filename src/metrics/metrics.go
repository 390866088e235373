// Package metrics holds the prometheus collectors of the trading agent. Every
// collector lives on a private registry exposed through Handler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "evergreen"

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	guardBlocks   *prometheus.CounterVec
	ordersCreated *prometheus.CounterVec
	fillsRecorded prometheus.Counter
	ticks         *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	signals       *prometheus.CounterVec
	marketErrors  *prometheus.CounterVec
}

// New builds a fresh registry with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		guardBlocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_blocks_total",
			Help:      "Order submissions blocked by the guard, by reason.",
		}, []string{"reason"}),
		ordersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders accepted by the execution service.",
		}, []string{"mode", "side"}),
		fillsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fills_recorded_total",
			Help:      "New fills persisted by reconciliation.",
		}),
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrator_ticks_total",
			Help:      "Orchestrator ticks, by outcome.",
		}, []string{"outcome"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "orchestrator_tick_seconds",
			Help:      "Wall time of one orchestrator tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		signals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_submitted_total",
			Help:      "Strategy signals submitted as orders, by side.",
		}, []string{"side"}),
		marketErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_errors_total",
			Help:      "Per-market evaluation failures.",
		}, []string{"market"}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) GuardBlocked(reason string) {
	if m == nil {
		return
	}
	m.guardBlocks.WithLabelValues(reason).Inc()
}

func (m *Metrics) OrderCreated(mode, side string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(mode, side).Inc()
}

func (m *Metrics) FillsRecorded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fillsRecorded.Add(float64(n))
}

// TickFinished records one orchestrator tick. outcome is "ok", "skipped" or "aborted".
func (m *Metrics) TickFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(outcome).Inc()
	m.tickDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SignalSubmitted(side string) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(side).Inc()
}

func (m *Metrics) MarketFailed(market string) {
	if m == nil {
		return
	}
	m.marketErrors.WithLabelValues(market).Inc()
}
