// Package registry is the boundary to the external voter registry. The core
// only reads an eligibility snapshot per request and issues a best-effort
// status update after verification; the registry owns the voter roll.
package registry

import "context"

// Status is the voter's roll status as reported by the registry.
type Status string

const (
	StatusActive  Status = "active"
	StatusVoted   Status = "voted"
	StatusRevoked Status = "revoked"
)

// VoterEligibility is the per-request read snapshot. The core never mutates
// it directly.
type VoterEligibility struct {
	VoterID           string
	DisplayName       string
	AssignedStationID string
	Status            Status
}

// Registry is the external collaborator contract.
type Registry interface {
	// GetEligibility returns the voter's snapshot, or sentinel.ErrNotFound
	// when the voter is not on the roll.
	GetEligibility(ctx context.Context, voterID string) (*VoterEligibility, error)

	// MarkVoted records the voted status in the registry. Idempotent and
	// best-effort: the double-vote guard, not the registry, is the
	// authoritative exactly-once decision.
	MarkVoted(ctx context.Context, voterID string) error
}
