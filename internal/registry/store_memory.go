package registry

import (
	"context"
	"sync"

	"pollguard/pkg/platform/sentinel"
)

// MemoryRegistry is an in-process registry for development and tests. Seed
// it with a voter roll at construction or via Add.
type MemoryRegistry struct {
	mu     sync.RWMutex
	voters map[string]VoterEligibility
}

// NewMemoryRegistry creates a registry seeded with the given voters.
func NewMemoryRegistry(voters ...VoterEligibility) *MemoryRegistry {
	m := &MemoryRegistry{voters: make(map[string]VoterEligibility)}
	for _, v := range voters {
		m.voters[v.VoterID] = v
	}
	return m
}

// Add inserts or replaces a voter on the roll.
func (m *MemoryRegistry) Add(v VoterEligibility) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voters[v.VoterID] = v
}

// GetEligibility returns a copy of the voter's snapshot.
func (m *MemoryRegistry) GetEligibility(ctx context.Context, voterID string) (*VoterEligibility, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.voters[voterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

// MarkVoted flips the voter's status. Marking an unknown or already-voted
// voter is a no-op, keeping the call idempotent.
func (m *MemoryRegistry) MarkVoted(ctx context.Context, voterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.voters[voterID]; ok {
		v.Status = StatusVoted
		m.voters[voterID] = v
	}
	return nil
}
