package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qwizzeria"

// Metrics holds the bracket engine collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	claims          *prometheus.CounterVec
	matchesComplete prometheus.Counter
	writeFailures   *prometheus.CounterVec
	feedEvents      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_claims_total",
			Help:      "Claim and reclaim attempts by kind and outcome.",
		}, []string{"kind", "result"}),
		matchesComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_completed_total",
			Help:      "Matches whose result row was committed.",
		}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "end_match_write_failures_total",
			Help:      "Failed end-of-match writes by stage.",
		}, []string{"stage"}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_total",
			Help:      "Change feed events by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.claims, m.matchesComplete, m.writeFailures, m.feedEvents)
	return m
}

func (m *Metrics) Claim(kind, result string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) MatchCompleted() {
	if m == nil {
		return
	}
	m.matchesComplete.Inc()
}

func (m *Metrics) WriteFailed(stage string) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) FeedEvent(outcome string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(outcome).Inc()
}
