package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal result of a verification attempt.
type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Verdict is the fraud assessment attached to a record. It is produced once
// per attempt and never modified after the record is appended.
type Verdict struct {
	IsSuspicious bool     `json:"is_suspicious"`
	Confidence   float64  `json:"confidence"`
	Reasons      []string `json:"reasons"`
}

// AuditRecord is one link in the hash chain. RecordHash covers every field
// plus PreviousRecordHash, so editing any historical record invalidates all
// hashes after it.
type AuditRecord struct {
	SequenceID       int64
	VoterID          string
	VoterIDHash      string
	TerminalID       string
	PollingStationID string
	Method           string
	DurationSeconds  float64
	RetryCount       int
	Outcome          Outcome
	Reason           string
	Verdict          Verdict
	RecordedAt       time.Time
	PreviousRecordHash string
	RecordHash         string
}

// HashID returns the SHA-256 hex digest of an identifier. Used so logs and
// downstream consumers can correlate voters without carrying the raw ID.
func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// chainHash computes the record digest over a canonical field encoding
// concatenated with the previous head hash. Field order is part of the chain
// format and must not change.
func chainHash(r AuditRecord, previousHash string) string {
	canonical := fmt.Sprintf("%d|%s|%s|%s|%s|%g|%d|%s|%s|%t|%g|%s|%s|%s",
		r.SequenceID,
		r.VoterID,
		r.TerminalID,
		r.PollingStationID,
		r.Method,
		r.DurationSeconds,
		r.RetryCount,
		r.Outcome,
		r.Reason,
		r.Verdict.IsSuspicious,
		r.Verdict.Confidence,
		strings.Join(r.Verdict.Reasons, ","),
		r.RecordedAt.UTC().Format(time.RFC3339Nano),
		previousHash,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
