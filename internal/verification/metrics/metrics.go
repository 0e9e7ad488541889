package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification orchestrator.
type Metrics struct {
	// Terminal-state outcomes by status and reason
	Outcomes *prometheus.CounterVec

	// Full verification latency including registry, guard, scoring, ledger
	VerifyLatency prometheus.Histogram

	// Compensating claim resolutions after post-claim failures
	ClaimCompensations *prometheus.CounterVec
}

// New creates a Metrics instance with all orchestrator metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pollguard_verification_outcomes_total",
			Help: "Total verification outcomes by status and reason",
		}, []string{"status", "reason"}),

		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pollguard_verification_duration_seconds",
			Help:    "Duration of full verification handling",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ClaimCompensations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pollguard_verification_claim_compensations_total",
			Help: "Compensating claim resolutions by result",
		}, []string{"result"}), // result: "recorded_failed", "released", "unresolved"
	}
}

// ObserveOutcome records a terminal-state outcome.
func (m *Metrics) ObserveOutcome(status, reason string, d time.Duration) {
	if m != nil {
		if reason == "" {
			reason = "none"
		}
		m.Outcomes.WithLabelValues(status, reason).Inc()
		m.VerifyLatency.Observe(d.Seconds())
	}
}

// ObserveCompensation records how a dangling claim was resolved.
func (m *Metrics) ObserveCompensation(result string) {
	if m != nil {
		m.ClaimCompensations.WithLabelValues(result).Inc()
	}
}
