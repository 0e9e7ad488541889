package terminal

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ServiceSuite struct {
	suite.Suite
	enrollments *MemoryEnrollments
	tokens      *TokenService
	service     *Service
	ctx         context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.enrollments = NewMemoryEnrollments()
	s.tokens = NewTokenService(testSigningKey, time.Hour)
	s.ctx = context.Background()

	svc, err := NewService(s.enrollments, s.tokens, NewMonitor(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TestEnrollThenAuthenticate() {
	secret, err := s.service.Enroll(s.ctx, "term-A", "station-1")
	s.Require().NoError(err)
	s.NotEmpty(secret)

	// The stored enrollment carries only the hash.
	enrollment, err := s.enrollments.GetEnrollment(s.ctx, "term-A")
	s.Require().NoError(err)
	s.NotEqual(secret, enrollment.SecretHash)

	token, err := s.service.Authenticate(s.ctx, "term-A", secret)
	s.Require().NoError(err)

	claims, err := s.tokens.ValidateToken(token)
	s.Require().NoError(err)
	s.Equal("term-A", claims.TerminalID)
	s.Equal("station-1", claims.PollingStationID)
}

func (s *ServiceSuite) TestAuthenticateRejections() {
	secret, err := s.service.Enroll(s.ctx, "term-A", "station-1")
	s.Require().NoError(err)

	s.Run("wrong secret", func() {
		_, err := s.service.Authenticate(s.ctx, "term-A", "wrong-"+secret)
		s.Error(err)
	})

	s.Run("unknown terminal gets the same error as a bad secret", func() {
		_, unknownErr := s.service.Authenticate(s.ctx, "term-ghost", secret)
		s.Require().Error(unknownErr)

		_, badSecretErr := s.service.Authenticate(s.ctx, "term-A", "nope")
		s.Require().Error(badSecretErr)
		s.Equal(badSecretErr.Error(), unknownErr.Error())
	})
}

func (s *ServiceSuite) TestEnrollValidation() {
	_, err := s.service.Enroll(s.ctx, "", "station-1")
	s.Error(err)

	_, err = s.service.Enroll(s.ctx, "term-A", "")
	s.Error(err)
}

func (s *ServiceSuite) TestHeartbeat() {
	monitor := NewMonitor()
	svc, err := NewService(s.enrollments, s.tokens, monitor, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)

	updates := svc.Heartbeat(s.ctx, Heartbeat{TerminalID: "term-A", Status: "healthy"})
	s.False(updates)

	monitor.FlagUpdate("term-A", true)
	updates = svc.Heartbeat(s.ctx, Heartbeat{TerminalID: "term-A", Status: "healthy"})
	s.True(updates)
}
