// Package claim implements the double-vote guard: an atomic, expiring
// claim per voter ID. The claim transition is a single compare-and-swap,
// never a check followed by a write, so two terminals racing on the same
// voter can never both win.
package claim

import (
	"context"
	"time"
)

// Result reports the outcome of a claim attempt. When Claimed is false the
// Terminal and ClaimedAt fields describe the existing claim that won.
type Result struct {
	Claimed    bool
	TerminalID string
	ClaimedAt  time.Time
}

// Guard is the exactly-once claim contract. Implementations must guarantee
// that for any voter ID at most one concurrent TryClaim returns Claimed=true
// within the horizon.
type Guard interface {
	// TryClaim atomically claims voterID for terminalID. The claim expires
	// at the configured horizon after now.
	TryClaim(ctx context.Context, voterID, terminalID string, now time.Time) (Result, error)

	// Release removes a claim so a voter is not deadlocked when processing
	// fails after a successful claim. Releasing an unclaimed voter is a no-op.
	Release(ctx context.Context, voterID string) error
}
