package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "perpstate"

// Metrics are the oracle's Prometheus collectors.
type Metrics struct {
	priceRounds     *prometheus.CounterVec
	latestPrice     *prometheus.GaugeVec
	snapshotWrites  *prometheus.CounterVec
	snapshotCounter prometheus.Gauge
	failures        *prometheus.CounterVec
	hookFailures    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		priceRounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "price",
				Name:      "rounds_total",
				Help:      "Price rounds appended per feed",
			},
			[]string{"feed"},
		),
		latestPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "price",
				Name:      "latest",
				Help:      "Latest price per feed in display units",
			},
			[]string{"feed"},
		),
		snapshotWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "reserve",
				Name:      "snapshot_writes_total",
				Help:      "Reserve snapshot writes by mode (append, amend)",
			},
			[]string{"mode"},
		),
		snapshotCounter: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "reserve",
				Name:      "snapshot_counter",
				Help:      "Current reserve snapshot counter",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "oracle",
				Name:      "transition_failures_total",
				Help:      "State transitions rejected or failed, by operation",
			},
			[]string{"op"},
		),
		hookFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "oracle",
				Name:      "hook_failures_total",
				Help:      "Post-commit hook failures (journal, persistence)",
			},
			[]string{"hook"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.priceRounds,
			m.latestPrice,
			m.snapshotWrites,
			m.snapshotCounter,
			m.failures,
			m.hookFailures,
		)
	}
	return m
}

func (m *Metrics) observeRound(feed string, price float64) {
	if m == nil {
		return
	}
	m.priceRounds.WithLabelValues(feed).Inc()
	m.latestPrice.WithLabelValues(feed).Set(price)
}

func (m *Metrics) observeSnapshot(mode string, counter uint64) {
	if m == nil {
		return
	}
	m.snapshotWrites.WithLabelValues(mode).Inc()
	m.snapshotCounter.Set(float64(counter))
}

func (m *Metrics) observeFailure(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op).Inc()
}

func (m *Metrics) observeHookFailure(hook string) {
	if m == nil {
		return
	}
	m.hookFailures.WithLabelValues(hook).Inc()
}
