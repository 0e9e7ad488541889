package fraud

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned by trainers when the window does not hold
// enough records. Not an error condition for the engine: it stays untrained.
var ErrInsufficientData = errors.New("insufficient training data")

// Model scores a feature vector. The engine consumes trained models as black
// boxes: a raw anomaly score (higher is more normal, roughly centered on
// [-0.5, 0.5]) and a binary anomaly label.
type Model interface {
	Score(features FeatureVector) (score float64, anomalous bool)
}

// Trainer fits a new model from historical feature vectors. Implementations
// must return ErrInsufficientData rather than a degenerate model when the
// sample set is too small.
type Trainer interface {
	Fit(samples []FeatureVector) (Model, error)
}

// BaselineTrainer fits a per-feature mean/deviation profile. It stands in
// for an externally trained anomaly model and keeps the same score contract,
// so swapping in a real model is a constructor change.
type BaselineTrainer struct{}

type baselineModel struct {
	mean   [5]float64
	stddev [5]float64
}

// minBaselineSamples is the floor below which deviation estimates are noise.
const minBaselineSamples = 2

// Fit computes the feature profile for the sample window.
func (BaselineTrainer) Fit(samples []FeatureVector) (Model, error) {
	if len(samples) < minBaselineSamples {
		return nil, ErrInsufficientData
	}

	var m baselineModel
	n := float64(len(samples))

	for _, s := range samples {
		for i, v := range s.values() {
			m.mean[i] += v / n
		}
	}
	for _, s := range samples {
		for i, v := range s.values() {
			d := v - m.mean[i]
			m.stddev[i] += d * d / n
		}
	}
	for i := range m.stddev {
		m.stddev[i] = math.Sqrt(m.stddev[i])
		if m.stddev[i] == 0 {
			m.stddev[i] = 1
		}
	}
	return &m, nil
}

// Score maps the largest per-feature deviation onto the anomaly score range.
// Three deviations from baseline crosses zero; beyond that the attempt is
// labeled anomalous.
func (m *baselineModel) Score(features FeatureVector) (float64, bool) {
	maxZ := 0.0
	for i, v := range features.values() {
		z := math.Abs(v-m.mean[i]) / m.stddev[i]
		if z > maxZ {
			maxZ = z
		}
	}
	score := 0.5 - maxZ/6.0
	return score, score < 0
}

func (f FeatureVector) values() [5]float64 {
	return [5]float64{f.HourOfDay, f.DurationSeconds, f.TerminalLoad, f.MethodCode, f.RetryCount}
}
