package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"pollguard/internal/fraud"
	"pollguard/internal/verification"
	"pollguard/pkg/requestcontext"
)

// stubService returns a canned result and remembers the last request.
type stubService struct {
	mu     sync.Mutex
	result *verification.Result
	err    error
	last   verification.Request
}

func (s *stubService) Verify(_ context.Context, req verification.Request) (*verification.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = req
	return s.result, s.err
}

type HandlerSuite struct {
	suite.Suite
	service *stubService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{
		result: &verification.Result{Status: verification.StatusVerified, ReceiptID: 7, VoterName: "Ada Quorum"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, logger)

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) post(body string, ctxMutators ...func(context.Context) context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/verify", bytes.NewBufferString(body))
	ctx := req.Context()
	for _, mutate := range ctxMutators {
		ctx = mutate(ctx)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

const validBody = `{
	"voter_id": "voter-1",
	"method": "card",
	"terminal_id": "term-A",
	"polling_station_id": "station-1",
	"timestamp": "2026-11-03T09:00:00Z",
	"verification_duration_seconds": 5.0,
	"retry_count": 1
}`

func (s *HandlerSuite) TestVerified() {
	rec := s.post(validBody)
	s.Equal(http.StatusOK, rec.Code)

	var resp VerifyResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("verified", resp.Status)
	s.Equal(int64(7), resp.ReceiptID)
	s.Equal("Ada Quorum", resp.VoterName)

	s.service.mu.Lock()
	defer s.service.mu.Unlock()
	s.Equal("voter-1", s.service.last.VoterID)
	s.Equal(verification.MethodCard, s.service.last.Method)
	s.Equal(5.0, s.service.last.DurationSeconds)
	s.Equal(1, s.service.last.RetryCount)
	s.False(s.service.last.ClientTimestamp.IsZero())
}

func (s *HandlerSuite) TestStatusMapping() {
	tests := []struct {
		name   string
		result *verification.Result
		code   int
	}{
		{"rejected", &verification.Result{Status: verification.StatusRejected, Reason: verification.ReasonAlreadyVoted}, http.StatusForbidden},
		{"voter not found", &verification.Result{Status: verification.StatusFailed, Reason: verification.ReasonVoterNotFound}, http.StatusNotFound},
		{"invalid per service", &verification.Result{Status: verification.StatusFailed, Reason: verification.ReasonInvalidRequest}, http.StatusBadRequest},
		{"upstream down", &verification.Result{Status: verification.StatusFailed, Reason: verification.ReasonUpstreamUnavailable}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.service.mu.Lock()
			s.service.result = tt.result
			s.service.mu.Unlock()
			rec := s.post(validBody)
			s.Equal(tt.code, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestMalformedBody() {
	rec := s.post(`{"voter_id": `)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestMissingFields() {
	tests := []struct {
		name string
		body string
	}{
		{"no voter", `{"method":"card","terminal_id":"t","polling_station_id":"p"}`},
		{"no terminal", `{"voter_id":"v","method":"card","polling_station_id":"p"}`},
		{"no station", `{"voter_id":"v","method":"card","terminal_id":"t"}`},
		{"bad method", `{"voter_id":"v","method":"guess","terminal_id":"t","polling_station_id":"p"}`},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.post(tt.body)
			s.Equal(http.StatusBadRequest, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestTerminalMismatchForbidden() {
	rec := s.post(validBody, func(ctx context.Context) context.Context {
		return requestcontext.WithTerminalID(ctx, "term-OTHER")
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestTerminalMatchAllowed() {
	rec := s.post(validBody, func(ctx context.Context) context.Context {
		return requestcontext.WithTerminalID(ctx, "term-A")
	})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestSuspiciousVerdictOnWire() {
	s.service.mu.Lock()
	s.service.result = &verification.Result{
		Status:    verification.StatusVerified,
		ReceiptID: 8,
		Verdict: fraud.Verdict{
			IsSuspicious: true,
			Confidence:   0.9,
			Reasons:      []string{"Verification speed abnormally fast"},
		},
	}
	s.service.mu.Unlock()

	rec := s.post(validBody)
	s.Equal(http.StatusOK, rec.Code)

	var resp VerifyResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Suspicious)
	s.Equal([]string{"Verification speed abnormally fast"}, resp.FraudReasons)
}
