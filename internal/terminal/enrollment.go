package terminal

import (
	"context"
	"sync"
	"time"

	"pollguard/pkg/platform/sentinel"
)

// Enrollment binds a terminal to its polling station and the bcrypt hash
// of its enrollment secret. The plaintext secret is never stored.
type Enrollment struct {
	TerminalID       string
	PollingStationID string
	SecretHash       string
	EnrolledAt       time.Time
}

// EnrollmentStore looks up enrolled terminals.
type EnrollmentStore interface {
	GetEnrollment(ctx context.Context, terminalID string) (*Enrollment, error)
	PutEnrollment(ctx context.Context, enrollment Enrollment) error
}

// MemoryEnrollments is an in-memory EnrollmentStore for tests and
// single-node deployments.
type MemoryEnrollments struct {
	mu      sync.RWMutex
	entries map[string]Enrollment
}

func NewMemoryEnrollments() *MemoryEnrollments {
	return &MemoryEnrollments{entries: make(map[string]Enrollment)}
}

func (s *MemoryEnrollments) GetEnrollment(_ context.Context, terminalID string) (*Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[terminalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &entry, nil
}

func (s *MemoryEnrollments) PutEnrollment(_ context.Context, enrollment Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[enrollment.TerminalID] = enrollment
	return nil
}
