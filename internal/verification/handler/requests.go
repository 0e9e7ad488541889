package handler

import (
	"time"

	dErrors "pollguard/pkg/domain-errors"

	"pollguard/internal/verification"
)

// VerifyRequest is the wire form of a verification attempt.
type VerifyRequest struct {
	VoterID          string  `json:"voter_id"`
	Method           string  `json:"method"`
	TerminalID       string  `json:"terminal_id"`
	PollingStationID string  `json:"polling_station_id"`
	ClientTimestamp  string  `json:"timestamp"`
	DurationSeconds  float64 `json:"verification_duration_seconds"`
	RetryCount       int     `json:"retry_count"`
}

// Validate checks required fields. Deep validation stays in the service;
// this only rejects requests that cannot be mapped to the domain type.
func (r VerifyRequest) Validate() error {
	if r.VoterID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "voter_id is required")
	}
	if r.TerminalID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "terminal_id is required")
	}
	if r.PollingStationID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "polling_station_id is required")
	}
	if !verification.Method(r.Method).Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "method must be card, biometric, or manual")
	}
	return nil
}

// ToDomain maps the wire request onto the domain type. An unparseable
// client timestamp is left zero; the server clock drives all decisions.
func (r VerifyRequest) ToDomain() verification.Request {
	clientTS, _ := time.Parse(time.RFC3339, r.ClientTimestamp)
	return verification.Request{
		VoterID:          r.VoterID,
		Method:           verification.Method(r.Method),
		TerminalID:       r.TerminalID,
		PollingStationID: r.PollingStationID,
		ClientTimestamp:  clientTS,
		DurationSeconds:  r.DurationSeconds,
		RetryCount:       r.RetryCount,
	}
}
