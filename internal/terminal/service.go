package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	dErrors "pollguard/pkg/domain-errors"
	"pollguard/pkg/platform/sentinel"
	"pollguard/pkg/requestcontext"

	"pollguard/internal/terminal/secrets"
)

// Service owns terminal enrollment and session issuance.
type Service struct {
	enrollments EnrollmentStore
	tokens      *TokenService
	monitor     *Monitor
	logger      *slog.Logger
}

func NewService(enrollments EnrollmentStore, tokens *TokenService, monitor *Monitor, logger *slog.Logger) (*Service, error) {
	if enrollments == nil {
		return nil, errors.New("enrollment store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	if monitor == nil {
		monitor = NewMonitor()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{enrollments: enrollments, tokens: tokens, monitor: monitor, logger: logger}, nil
}

// Enroll registers a terminal and returns the one-time plaintext secret.
// The secret is only stored hashed, so this is the sole chance to see it.
func (s *Service) Enroll(ctx context.Context, terminalID, pollingStationID string) (string, error) {
	if terminalID == "" || pollingStationID == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "terminal_id and polling_station_id are required")
	}
	secret, err := secrets.Generate()
	if err != nil {
		return "", err
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return "", err
	}
	enrollment := Enrollment{
		TerminalID:       terminalID,
		PollingStationID: pollingStationID,
		SecretHash:       hash,
		EnrolledAt:       requestcontext.Now(ctx),
	}
	if err := s.enrollments.PutEnrollment(ctx, enrollment); err != nil {
		return "", fmt.Errorf("could not store enrollment: %w", err)
	}
	s.logger.InfoContext(ctx, "terminal enrolled",
		"terminal_id", terminalID,
		"polling_station_id", pollingStationID,
	)
	return secret, nil
}

// Authenticate verifies a terminal's enrollment secret and issues a
// session token bound to its enrolled polling station.
func (s *Service) Authenticate(ctx context.Context, terminalID, secret string) (string, error) {
	enrollment, err := s.enrollments.GetEnrollment(ctx, terminalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Same response as a bad secret so enrollment status
			// cannot be probed.
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid terminal credentials")
		}
		return "", fmt.Errorf("could not load enrollment: %w", err)
	}
	if err := secrets.Verify(secret, enrollment.SecretHash); err != nil {
		s.logger.WarnContext(ctx, "terminal authentication failed",
			"terminal_id", terminalID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid terminal credentials")
	}
	token, err := s.tokens.Issue(enrollment.TerminalID, enrollment.PollingStationID)
	if err != nil {
		return "", fmt.Errorf("could not issue session token: %w", err)
	}
	return token, nil
}

// Heartbeat records a liveness report and reports pending updates.
func (s *Service) Heartbeat(ctx context.Context, hb Heartbeat) bool {
	return s.monitor.Record(ctx, hb)
}
