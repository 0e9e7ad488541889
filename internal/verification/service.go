// Package verification coordinates the per-request state machine:
// Received -> EligibilityChecked -> Claimed|Rejected -> Scored -> Recorded.
// The service owns no state of its own; the guard and the ledger are the
// shared structures, and both are injected so tests can swap them.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pollguard/internal/alerts"
	"pollguard/internal/claim"
	"pollguard/internal/fraud"
	"pollguard/internal/ledger"
	"pollguard/internal/verification/metrics"
	"pollguard/internal/registry"
	"pollguard/pkg/platform/sentinel"
	"pollguard/pkg/requestcontext"
)

// FraudEngine is the scoring contract the orchestrator needs.
type FraudEngine interface {
	Evaluate(ctx context.Context, attempt fraud.Attempt) (fraud.Verdict, error)
}

// Service is the verification orchestrator.
type Service struct {
	registry registry.Registry
	guard    claim.Guard
	ledger   ledger.Ledger
	engine   FraudEngine
	alerts   alerts.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// blockThreshold hard-rejects when verdict confidence reaches it.
	// Zero keeps fraud scoring advisory-only, the default policy.
	blockThreshold float64
}

// NewService wires the orchestrator. alerts and metrics may be nil; a nil
// alerts publisher disables fan-out.
func NewService(
	reg registry.Registry,
	guard claim.Guard,
	led ledger.Ledger,
	engine FraudEngine,
	alertPub alerts.Publisher,
	blockThreshold float64,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*Service, error) {
	if reg == nil || guard == nil || led == nil || engine == nil {
		return nil, fmt.Errorf("verification service requires registry, guard, ledger, and engine")
	}
	if alertPub == nil {
		alertPub = alerts.NoopPublisher{}
	}
	return &Service{
		registry:       reg,
		guard:          guard,
		ledger:         led,
		engine:         engine,
		alerts:         alertPub,
		logger:         logger,
		metrics:        m,
		blockThreshold: blockThreshold,
	}, nil
}

// Verify runs one attempt through the full state machine. Business
// rejections come back as Results, never as errors; the error return is
// reserved for conditions the transport layer cannot map.
func (s *Service) Verify(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	tracer := otel.Tracer("pollguard/verification")
	ctx, span := tracer.Start(ctx, "verification.Verify")
	defer span.End()
	span.SetAttributes(
		attribute.String("terminal_id", req.TerminalID),
		attribute.String("polling_station_id", req.PollingStationID),
	)

	result := s.verify(ctx, req)
	s.metrics.ObserveOutcome(string(result.Status), result.Reason, time.Since(start))

	s.logger.InfoContext(ctx, "verification handled",
		"request_id", requestcontext.RequestID(ctx),
		"voter_id_hash", ledger.HashID(req.VoterID),
		"terminal_id", req.TerminalID,
		"station_id", req.PollingStationID,
		"status", result.Status,
		"reason", result.Reason,
		"suspicious", result.Verdict.IsSuspicious,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) verify(ctx context.Context, req Request) *Result {
	now := requestcontext.Now(ctx)

	// Received: fail fast on malformed input, no state mutation.
	if err := validate(req); err != nil {
		return &Result{Status: StatusFailed, Reason: ReasonInvalidRequest}
	}

	// EligibilityChecked: read the registry snapshot.
	eligibility, err := s.registry.GetEligibility(ctx, req.VoterID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.record(ctx, req, now, StatusFailed, ReasonVoterNotFound, fraud.Verdict{}, nil)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "registry eligibility lookup failed", "error", err)
		return &Result{Status: StatusFailed, Reason: ReasonUpstreamUnavailable}
	}
	if eligibility.Status == registry.StatusRevoked {
		return s.record(ctx, req, now, StatusRejected, ReasonVoterRevoked, fraud.Verdict{}, nil)
	}
	if eligibility.AssignedStationID != req.PollingStationID {
		result := s.record(ctx, req, now, StatusRejected, ReasonWrongStation, fraud.Verdict{}, nil)
		result.CorrectStation = eligibility.AssignedStationID
		return result
	}
	if eligibility.Status == registry.StatusVoted {
		return s.record(ctx, req, now, StatusRejected, ReasonAlreadyVoted, fraud.Verdict{}, nil)
	}

	// Claimed: the guard is the authoritative exactly-once decision.
	claimResult, err := s.guard.TryClaim(ctx, req.VoterID, req.TerminalID, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "claim attempt failed", "error", err)
		return &Result{Status: StatusFailed, Reason: ReasonUpstreamUnavailable}
	}
	if !claimResult.Claimed {
		return s.record(ctx, req, now, StatusRejected, ReasonAlreadyVoted, fraud.Verdict{}, nil)
	}

	// Scored: fraud scoring is advisory unless the hard-block threshold is
	// configured and met.
	verdict, err := s.engine.Evaluate(ctx, fraud.Attempt{
		VoterID:          req.VoterID,
		TerminalID:       req.TerminalID,
		PollingStationID: req.PollingStationID,
		Method:           string(req.Method),
		DurationSeconds:  req.DurationSeconds,
		RetryCount:       req.RetryCount,
		At:               now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "fraud scoring failed after claim", "error", err)
		return s.resolveClaim(ctx, req, now)
	}

	if s.blockThreshold > 0 && verdict.IsSuspicious && verdict.Confidence >= s.blockThreshold {
		// Release so a human-cleared voter can retry; the rejection record
		// stays in the ledger for review.
		if err := s.guard.Release(ctx, req.VoterID); err != nil {
			s.logger.ErrorContext(ctx, "release after fraud block failed", "error", err)
		}
		return s.record(ctx, req, now, StatusRejected, ReasonFraudSuspected, verdict, nil)
	}

	// Recorded: append the outcome; this assigns the receipt ID.
	result := s.record(ctx, req, now, StatusVerified, "", verdict, func() *Result {
		return s.resolveClaim(ctx, req, now)
	})
	if result.Status != StatusVerified {
		return result
	}
	result.VoterName = eligibility.DisplayName

	// Secondary best-effort registry update; the guard already decided.
	if err := s.registry.MarkVoted(ctx, req.VoterID); err != nil {
		s.logger.WarnContext(ctx, "registry mark-voted failed", "error", err)
	}

	if verdict.IsSuspicious {
		s.publishAlert(ctx, req, verdict, result.ReceiptID, now)
	}
	return result
}

// record appends the attempt's audit record and builds the result. When the
// append fails and onAppendFailure is set (post-claim paths), it is invoked
// to resolve the dangling claim; otherwise the attempt degrades to a plain
// upstream failure.
func (s *Service) record(ctx context.Context, req Request, now time.Time, status Status, reason string, verdict fraud.Verdict, onAppendFailure func() *Result) *Result {
	seq, err := s.ledger.Append(ctx, ledger.AuditRecord{
		VoterID:          req.VoterID,
		TerminalID:       req.TerminalID,
		PollingStationID: req.PollingStationID,
		Method:           string(req.Method),
		DurationSeconds:  req.DurationSeconds,
		RetryCount:       req.RetryCount,
		Outcome:          outcomeFor(status),
		Reason:           reason,
		Verdict: ledger.Verdict{
			IsSuspicious: verdict.IsSuspicious,
			Confidence:   verdict.Confidence,
			Reasons:      verdict.Reasons,
		},
		RecordedAt: now,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "error", err, "status", status, "reason", reason)
		if onAppendFailure != nil {
			return onAppendFailure()
		}
		return &Result{Status: StatusFailed, Reason: ReasonUpstreamUnavailable}
	}

	return &Result{
		Status:    status,
		Reason:    reason,
		ReceiptID: seq,
		Verdict:   verdict,
	}
}

// resolveClaim compensates for a failure after a successful claim so the
// voter is not stuck in claimed limbo. First choice is a Failed audit
// record; if the ledger is down too, the claim is released outright. Both
// failing is the one unrecoverable mode and is surfaced for manual
// intervention.
func (s *Service) resolveClaim(ctx context.Context, req Request, now time.Time) *Result {
	_, err := s.ledger.Append(ctx, ledger.AuditRecord{
		VoterID:          req.VoterID,
		TerminalID:       req.TerminalID,
		PollingStationID: req.PollingStationID,
		Method:           string(req.Method),
		DurationSeconds:  req.DurationSeconds,
		RetryCount:       req.RetryCount,
		Outcome:          ledger.OutcomeFailed,
		Reason:           ReasonUpstreamUnavailable,
		RecordedAt:       now,
	})
	if err == nil {
		s.metrics.ObserveCompensation("recorded_failed")
		return &Result{Status: StatusFailed, Reason: ReasonUpstreamUnavailable}
	}

	if releaseErr := s.guard.Release(ctx, req.VoterID); releaseErr != nil {
		s.metrics.ObserveCompensation("unresolved")
		s.logger.ErrorContext(ctx, "claim unresolved, manual intervention required",
			"voter_id_hash", ledger.HashID(req.VoterID),
			"terminal_id", req.TerminalID,
			"append_error", err,
			"release_error", releaseErr,
		)
		return &Result{Status: StatusFailed, Reason: ReasonUpstreamUnavailable}
	}

	s.metrics.ObserveCompensation("released")
	return &Result{Status: StatusFailed, Reason: ReasonUpstreamUnavailable}
}

func (s *Service) publishAlert(ctx context.Context, req Request, verdict fraud.Verdict, receiptID int64, now time.Time) {
	alert := alerts.Alert{
		ID:               uuid.NewString(),
		ReceiptID:        receiptID,
		VoterIDHash:      ledger.HashID(req.VoterID),
		TerminalID:       req.TerminalID,
		PollingStationID: req.PollingStationID,
		Confidence:       verdict.Confidence,
		Reasons:          verdict.Reasons,
		RecordedAt:       now,
	}
	if err := s.alerts.Publish(ctx, alert); err != nil {
		s.logger.WarnContext(ctx, "fraud alert publish failed", "error", err, "alert_id", alert.ID)
	}
}

func validate(req Request) error {
	if req.VoterID == "" {
		return fmt.Errorf("voter_id is required")
	}
	if req.TerminalID == "" {
		return fmt.Errorf("terminal_id is required")
	}
	if req.PollingStationID == "" {
		return fmt.Errorf("polling_station_id is required")
	}
	if !req.Method.Valid() {
		return fmt.Errorf("method %q is not one of card, biometric, manual", req.Method)
	}
	if req.DurationSeconds < 0 {
		return fmt.Errorf("verification duration must not be negative")
	}
	return nil
}

func outcomeFor(status Status) ledger.Outcome {
	switch status {
	case StatusVerified:
		return ledger.OutcomeVerified
	case StatusRejected:
		return ledger.OutcomeRejected
	default:
		return ledger.OutcomeFailed
	}
}
