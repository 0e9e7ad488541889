package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pollguard/pkg/platform/sentinel"
	"pollguard/pkg/requestcontext"
)

// MemoryStore keeps the chain in process memory. Appends take the write lock
// for the full link-and-hash step, so readers only ever see fully chained
// records. Suitable for single-instance deployments and tests; use
// PostgresStore when the ledger must survive restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	records []AuditRecord
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append assigns the next sequence ID, links the record to the current head,
// and stores it.
func (s *MemoryStore) Append(ctx context.Context, record AuditRecord) (int64, error) {
	if record.VoterID == "" || record.TerminalID == "" {
		return 0, fmt.Errorf("audit record requires voter and terminal IDs")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previousHash := ""
	if n := len(s.records); n > 0 {
		previousHash = s.records[n-1].RecordHash
	}

	record.SequenceID = int64(len(s.records)) + 1
	record.VoterIDHash = HashID(record.VoterID)
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}
	record.PreviousRecordHash = previousHash
	record.RecordHash = chainHash(record, previousHash)

	s.records = append(s.records, record)
	return record.SequenceID, nil
}

// RecentByTerminal counts records for the terminal inside the trailing window.
func (s *MemoryStore) RecentByTerminal(ctx context.Context, terminalID string, window time.Duration) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].RecordedAt.Before(cutoff) {
			continue
		}
		if s.records[i].TerminalID == terminalID {
			count++
		}
	}
	return count, nil
}

// LastByVoter returns the most recent record for the voter.
func (s *MemoryStore) LastByVoter(ctx context.Context, voterID string) (*AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].VoterID == voterID {
			record := s.records[i]
			return &record, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListSince returns records recorded after the cutoff, oldest first.
func (s *MemoryStore) ListSince(ctx context.Context, since time.Time) ([]AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AuditRecord
	for _, record := range s.records {
		if record.RecordedAt.After(since) {
			out = append(out, record)
		}
	}
	return out, nil
}

// VerifyChain recomputes every link and compares it to the stored hash.
func (s *MemoryStore) VerifyChain(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	previousHash := ""
	for i, record := range s.records {
		if record.PreviousRecordHash != previousHash {
			return fmt.Errorf("record %d previous-hash mismatch: %w", record.SequenceID, sentinel.ErrChainBroken)
		}
		if chainHash(record, previousHash) != record.RecordHash {
			return fmt.Errorf("record %d hash mismatch: %w", record.SequenceID, sentinel.ErrChainBroken)
		}
		if record.SequenceID != int64(i)+1 {
			return fmt.Errorf("record %d out of sequence: %w", record.SequenceID, sentinel.ErrChainBroken)
		}
		previousHash = record.RecordHash
	}
	return nil
}

// tamper overwrites a stored record in place. Test hook only: the public
// contract is append-only and this is how tests prove tampering is detected.
func (s *MemoryStore) tamper(index int, mutate func(*AuditRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.records[index])
}
