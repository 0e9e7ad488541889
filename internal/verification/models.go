package verification

import (
	"time"

	"pollguard/internal/fraud"
)

// Method is how the voter identified at the terminal.
type Method string

const (
	MethodCard      Method = "card"
	MethodBiometric Method = "biometric"
	MethodManual    Method = "manual"
)

// Valid reports whether the method is one the terminals can produce.
func (m Method) Valid() bool {
	switch m {
	case MethodCard, MethodBiometric, MethodManual:
		return true
	}
	return false
}

// Request is one verification attempt as received from a terminal.
// Immutable once received.
type Request struct {
	VoterID          string
	Method           Method
	TerminalID       string
	PollingStationID string
	ClientTimestamp  time.Time
	DurationSeconds  float64
	RetryCount       int
}

// Status is the terminal state of the per-request state machine.
type Status string

const (
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Rejection and failure reasons. These are wire values returned to
// terminals, so they are frozen.
const (
	ReasonInvalidRequest      = "invalid_request"
	ReasonVoterNotFound       = "voter_not_found"
	ReasonVoterRevoked        = "voter_revoked"
	ReasonWrongStation        = "wrong_polling_station"
	ReasonAlreadyVoted        = "already_voted"
	ReasonFraudSuspected      = "fraud_suspected"
	ReasonUpstreamUnavailable = "upstream_unavailable"
)

// Result is the orchestrator's answer to one attempt. ReceiptID is the
// ledger sequence ID of the attempt's audit record and doubles as the
// verification receipt identifier printed at the terminal.
type Result struct {
	Status         Status
	Reason         string
	CorrectStation string
	VoterName      string
	ReceiptID      int64
	Verdict        fraud.Verdict
}
