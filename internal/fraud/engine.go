// Package fraud combines deterministic rule checks with a trained anomaly
// model to score verification attempts. Scoring runs on the request path;
// training never does - a background fit publishes a new model snapshot
// atomically, so readers always see either the old or the new fully formed
// model.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pollguard/internal/fraud/metrics"
	"pollguard/pkg/requestcontext"
)

// Config carries the engine thresholds and the training gate.
type Config struct {
	Rules              Rules
	MinTrainingRecords int
	TrainingWindow     time.Duration
}

// Engine evaluates attempts against the ledger history and the current
// model snapshot.
type Engine struct {
	cfg     Config
	history History
	trainer Trainer
	logger  *slog.Logger
	metrics *metrics.Metrics

	model       atomic.Pointer[modelSnapshot]
	trainFlight singleflight.Group
}

type modelSnapshot struct {
	model     Model
	trainedAt time.Time
	samples   int
}

// NewEngine constructs the scoring engine. metrics may be nil in tests.
func NewEngine(cfg Config, history History, trainer Trainer, logger *slog.Logger, m *metrics.Metrics) (*Engine, error) {
	if history == nil {
		return nil, fmt.Errorf("fraud engine requires a history source")
	}
	if trainer == nil {
		return nil, fmt.Errorf("fraud engine requires a trainer")
	}
	return &Engine{
		cfg:     cfg,
		history: history,
		trainer: trainer,
		logger:  logger,
		metrics: m,
	}, nil
}

// Evaluate scores one attempt. Rule checks always run; the model path
// contributes confidence only when a trained snapshot is published.
// When untrained, an advisory notice is appended to the reasons but never
// drives the suspicion flag, and a background training run is kicked off.
func (e *Engine) Evaluate(ctx context.Context, attempt Attempt) (Verdict, error) {
	start := time.Now()
	now := attempt.At
	if now.IsZero() {
		now = requestcontext.Now(ctx)
	}

	var priorCount int
	var sighting *Sighting

	// History queries are independent; run them in parallel.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		priorCount, err = e.history.RecentByTerminal(gctx, attempt.TerminalID, e.cfg.Rules.RateWindow)
		if err != nil {
			return fmt.Errorf("terminal rate history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sighting, err = e.history.LastByVoter(gctx, attempt.VoterID)
		if err != nil {
			return fmt.Errorf("voter history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Verdict{}, err
	}

	var reasons []string
	if e.cfg.Rules.CheckSpeed(attempt.DurationSeconds) {
		reasons = append(reasons, ReasonSpeedAbnormal)
	}
	if e.cfg.Rules.CheckRate(priorCount) {
		reasons = append(reasons, ReasonHighTerminalRate)
	}
	if sighting != nil && e.cfg.Rules.CheckTravel(sighting.PollingStationID, sighting.RecordedAt, attempt.PollingStationID, now) {
		reasons = append(reasons, ReasonImpossibleTravel)
	}
	ruleSuspicious := len(reasons) > 0

	snapshot := e.model.Load()
	if snapshot == nil {
		e.trainAsync()
		verdict := Verdict{
			IsSuspicious: ruleSuspicious,
			Confidence:   0,
			Reasons:      append(reasons, ReasonModelUntrained),
		}
		e.metrics.ObserveVerdict(verdict.IsSuspicious, time.Since(start))
		return verdict, nil
	}

	features := FeatureVector{
		HourOfDay:       HourOfDay(now),
		DurationSeconds: attempt.DurationSeconds,
		TerminalLoad:    float64(priorCount+1) / float64(e.cfg.Rules.RateThreshold),
		MethodCode:      MethodCode(attempt.Method),
		RetryCount:      float64(attempt.RetryCount),
	}
	score, anomalous := snapshot.model.Score(features)

	verdict := Verdict{
		IsSuspicious: anomalous || ruleSuspicious,
		Confidence:   normalizeConfidence(score),
		Reasons:      reasons,
	}
	e.metrics.ObserveVerdict(verdict.IsSuspicious, time.Since(start))
	return verdict, nil
}

// Trained reports whether a model snapshot is currently published.
func (e *Engine) Trained() bool {
	return e.model.Load() != nil
}

// Retrain fits a fresh model from the trailing training window and publishes
// it atomically. Too little data is not an error: the engine keeps (or
// stays in) its previous state.
func (e *Engine) Retrain(ctx context.Context) error {
	_, err, _ := e.trainFlight.Do("train", func() (any, error) {
		since := time.Now().Add(-e.cfg.TrainingWindow)
		samples, err := e.history.TrainingSamples(ctx, since)
		if err != nil {
			e.metrics.ObserveTraining("error", e.Trained())
			return nil, fmt.Errorf("collect training samples: %w", err)
		}
		if len(samples) < e.cfg.MinTrainingRecords {
			e.metrics.ObserveTraining("insufficient_data", e.Trained())
			return nil, nil
		}

		model, err := e.trainer.Fit(samples)
		if errors.Is(err, ErrInsufficientData) {
			e.metrics.ObserveTraining("insufficient_data", e.Trained())
			return nil, nil
		}
		if err != nil {
			e.metrics.ObserveTraining("error", e.Trained())
			return nil, fmt.Errorf("fit model: %w", err)
		}

		e.model.Store(&modelSnapshot{
			model:     model,
			trainedAt: time.Now(),
			samples:   len(samples),
		})
		e.metrics.ObserveTraining("trained", true)
		e.logger.InfoContext(ctx, "fraud model snapshot published",
			"samples", len(samples),
		)
		return nil, nil
	})
	return err
}

// RunRetrainer retrains on a fixed cadence until the context is canceled.
// Started from main as a background task.
func (e *Engine) RunRetrainer(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Retrain(ctx); err != nil {
				e.logger.ErrorContext(ctx, "scheduled retrain failed", "error", err)
			}
		}
	}
}

// trainAsync kicks off one background training run. singleflight collapses
// the stampede when many untrained evaluations arrive at once.
func (e *Engine) trainAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.Retrain(ctx); err != nil {
			e.logger.Error("background training failed", "error", err)
		}
	}()
}

// normalizeConfidence maps the raw score onto [0,1]. The linear shift alone
// can leave the range for extreme scores, so the result is clamped.
func normalizeConfidence(score float64) float64 {
	confidence := 1 - (score + 0.5)
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
