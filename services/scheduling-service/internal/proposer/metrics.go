package proposer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records proposer activity. A nil *Metrics is a no-op.
type Metrics struct {
	proposals     *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	candidates    prometheus.Histogram
}

// NewMetrics registers the proposer collectors on reg, or on the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		proposals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetsched",
			Subsystem: "proposer",
			Name:      "proposals_total",
			Help:      "Propose calls by outcome.",
		}, []string{"outcome"}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetsched",
			Subsystem: "proposer",
			Name:      "busy_fetch_failures_total",
			Help:      "Busy interval fetches that failed and were treated as free.",
		}, []string{"reason"}),
		fetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "meetsched",
			Subsystem: "proposer",
			Name:      "busy_fetch_seconds",
			Help:      "Latency of busy interval fetches per window.",
			Buckets:   prometheus.DefBuckets,
		}),
		candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "meetsched",
			Subsystem: "proposer",
			Name:      "candidates",
			Help:      "Free candidates found before ranking.",
			Buckets:   []float64{0, 1, 3, 10, 30, 100, 300},
		}),
	}
}

func (m *Metrics) observeProposal(outcome string) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeFetchFailure(reason string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeFetch(seconds float64) {
	if m == nil {
		return
	}
	m.fetchLatency.Observe(seconds)
}

func (m *Metrics) observeCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Observe(float64(n))
}
