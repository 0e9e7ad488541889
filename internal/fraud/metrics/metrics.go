package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the fraud scoring engine.
type Metrics struct {
	// Verdicts by suspicion outcome
	Verdicts *prometheus.CounterVec

	// Training attempts by result
	TrainingRuns *prometheus.CounterVec

	// Whether a trained model snapshot is currently published
	ModelTrained prometheus.Gauge

	// Full scoring latency including history queries
	EvaluateLatency prometheus.Histogram
}

// New creates a Metrics instance with all fraud engine metrics registered.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pollguard_fraud_verdicts_total",
			Help: "Total fraud verdicts by suspicion outcome",
		}, []string{"suspicious"}),

		TrainingRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pollguard_fraud_training_runs_total",
			Help: "Total model training attempts by result",
		}, []string{"result"}), // result: "trained", "insufficient_data", "error"

		ModelTrained: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pollguard_fraud_model_trained",
			Help: "1 when a trained model snapshot is published, 0 otherwise",
		}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pollguard_fraud_evaluate_duration_seconds",
			Help:    "Duration of fraud evaluation including ledger history queries",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// ObserveVerdict records a verdict outcome.
func (m *Metrics) ObserveVerdict(suspicious bool, d time.Duration) {
	if m != nil {
		label := "false"
		if suspicious {
			label = "true"
		}
		m.Verdicts.WithLabelValues(label).Inc()
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// ObserveTraining records a training attempt result.
func (m *Metrics) ObserveTraining(result string, trained bool) {
	if m != nil {
		m.TrainingRuns.WithLabelValues(result).Inc()
		if trained {
			m.ModelTrained.Set(1)
		}
	}
}
