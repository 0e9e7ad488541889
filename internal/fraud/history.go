package fraud

import (
	"context"
	"time"
)

// Sighting is a voter's most recent appearance in the audit trail.
type Sighting struct {
	PollingStationID string
	RecordedAt       time.Time
}

// History is the engine's queryable view over the audit ledger. Defined here
// so the engine depends on a narrow port; the ledger adapter satisfies it.
type History interface {
	// RecentByTerminal counts records for the terminal in the trailing window.
	RecentByTerminal(ctx context.Context, terminalID string, window time.Duration) (int, error)

	// LastByVoter returns the voter's most recent sighting, or nil when the
	// voter has no history.
	LastByVoter(ctx context.Context, voterID string) (*Sighting, error)

	// TrainingSamples extracts feature vectors from all records after the
	// cutoff, oldest first.
	TrainingSamples(ctx context.Context, since time.Time) ([]FeatureVector, error)
}
