// Package ledger is the append-only, tamper-evident store of verification
// events. It is the single source of truth for the history the fraud engine
// queries. Appends are serialized so sequence IDs are strictly increasing
// with no gaps, and no read ever observes a half-linked record.
package ledger

import (
	"context"
	"time"
)

// Ledger is the audit trail contract. Implementations assign SequenceID,
// VoterIDHash, PreviousRecordHash, and RecordHash on append; callers fill in
// the remaining fields.
type Ledger interface {
	// Append links the record onto the chain and returns its sequence ID.
	Append(ctx context.Context, record AuditRecord) (int64, error)

	// RecentByTerminal counts records for terminalID within the trailing
	// window, measured from the request-scoped clock.
	RecentByTerminal(ctx context.Context, terminalID string, window time.Duration) (int, error)

	// LastByVoter returns the most recent record for voterID, or
	// sentinel.ErrNotFound when the voter has no history.
	LastByVoter(ctx context.Context, voterID string) (*AuditRecord, error)

	// ListSince returns all records recorded after the cutoff, oldest first.
	// Used to assemble model training windows.
	ListSince(ctx context.Context, since time.Time) ([]AuditRecord, error)

	// VerifyChain walks the full chain and returns sentinel.ErrChainBroken
	// if any record's hash no longer matches its contents and predecessor.
	VerifyChain(ctx context.Context) error
}
