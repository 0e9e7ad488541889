package claim

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	terminalID string
	claimedAt  time.Time
	expiresAt  time.Time
}

// MemoryGuard is a mutex-guarded in-process guard for single-instance
// deployments and tests. For multi-instance deployments use RedisGuard so
// claims are visible across orchestrators.
type MemoryGuard struct {
	mu      sync.Mutex
	horizon time.Duration
	claims  map[string]memoryEntry
}

// NewMemoryGuard creates an in-memory guard with the given claim horizon.
func NewMemoryGuard(horizon time.Duration) *MemoryGuard {
	return &MemoryGuard{
		horizon: horizon,
		claims:  make(map[string]memoryEntry),
	}
}

// TryClaim inserts the claim if the voter is unclaimed or the prior claim
// has expired. The insert-if-absent happens under one lock acquisition so it
// is atomic with respect to concurrent claimants.
func (g *MemoryGuard) TryClaim(ctx context.Context, voterID, terminalID string, now time.Time) (Result, error) {
	if voterID == "" {
		return Result{}, fmt.Errorf("voter ID must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.claims[voterID]; ok && now.Before(existing.expiresAt) {
		return Result{
			Claimed:    false,
			TerminalID: existing.terminalID,
			ClaimedAt:  existing.claimedAt,
		}, nil
	}

	g.claims[voterID] = memoryEntry{
		terminalID: terminalID,
		claimedAt:  now,
		expiresAt:  now.Add(g.horizon),
	}
	return Result{Claimed: true, TerminalID: terminalID, ClaimedAt: now}, nil
}

// Release removes the claim for voterID.
func (g *MemoryGuard) Release(ctx context.Context, voterID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, voterID)
	return nil
}
