package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the Prometheus collectors of the network service on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	recomputeLatency   *prometheus.HistogramVec
	recomputeTotal     *prometheus.CounterVec
	discarded          prometheus.Counter
	treeSize           *prometheus.GaugeVec
	withdrawalPreviews *prometheus.CounterVec
	ingestedMembers    *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace (default "comptree").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "comptree"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.recomputeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "recompute_duration_seconds",
			Help:      "Time taken to fetch, build, annotate and aggregate a network",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"result"},
	)
	m.recomputeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "recomputes_total",
			Help:      "Total recomputations by outcome",
		},
		[]string{"result"},
	)
	m.discarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "discarded_generations_total",
			Help:      "Recomputations dropped because a newer one had started",
		},
	)
	m.treeSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "members",
			Help:      "Members in the latest applied snapshot",
		},
		[]string{"root"},
	)
	m.withdrawalPreviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "computations_total",
			Help:      "Withdrawal split computations by split tier",
		},
		[]string{"tier"},
	)
	m.ingestedMembers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "members_total",
			Help:      "Members written by bulk ingestion",
		},
		[]string{"result"},
	)

	m.registry.MustRegister(
		m.recomputeLatency,
		m.recomputeTotal,
		m.discarded,
		m.treeSize,
		m.withdrawalPreviews,
		m.ingestedMembers,
	)
	return m
}

// Registry exposes the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) recordRecompute(d time.Duration, result string) {
	if m == nil {
		return
	}
	m.recomputeLatency.WithLabelValues(result).Observe(d.Seconds())
	m.recomputeTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordDiscarded() {
	if m == nil {
		return
	}
	m.discarded.Inc()
}

func (m *Metrics) recordTreeSize(rootID string, size int) {
	if m == nil {
		return
	}
	m.treeSize.WithLabelValues(rootID).Set(float64(size))
}

func (m *Metrics) recordWithdrawal(tier string) {
	if m == nil {
		return
	}
	m.withdrawalPreviews.WithLabelValues(tier).Inc()
}

func (m *Metrics) recordIngest(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ingestedMembers.WithLabelValues(result).Inc()
}
