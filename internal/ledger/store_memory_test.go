package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pollguard/pkg/platform/sentinel"
	"pollguard/pkg/requestcontext"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.now = time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *MemoryStoreSuite) record(voterID, terminalID string, at time.Time) AuditRecord {
	return AuditRecord{
		VoterID:          voterID,
		TerminalID:       terminalID,
		PollingStationID: "station-1",
		Method:           "card",
		DurationSeconds:  4.2,
		Outcome:          OutcomeVerified,
		RecordedAt:       at,
	}
}

func (s *MemoryStoreSuite) TestAppend() {
	s.Run("assigns sequential IDs and links hashes", func() {
		first, err := s.store.Append(s.ctx, s.record("voter-1", "term-A", s.now))
		s.Require().NoError(err)
		s.Equal(int64(1), first)

		second, err := s.store.Append(s.ctx, s.record("voter-2", "term-A", s.now.Add(time.Minute)))
		s.Require().NoError(err)
		s.Equal(int64(2), second)

		head, err := s.store.LastByVoter(s.ctx, "voter-2")
		s.Require().NoError(err)
		s.NotEmpty(head.RecordHash)
		s.NotEmpty(head.PreviousRecordHash)

		genesis, err := s.store.LastByVoter(s.ctx, "voter-1")
		s.Require().NoError(err)
		s.Empty(genesis.PreviousRecordHash)
		s.Equal(genesis.RecordHash, head.PreviousRecordHash)
	})

	s.Run("hashes the voter ID", func() {
		_, err := s.store.Append(s.ctx, s.record("voter-3", "term-A", s.now))
		s.Require().NoError(err)

		rec, err := s.store.LastByVoter(s.ctx, "voter-3")
		s.Require().NoError(err)
		s.Equal(HashID("voter-3"), rec.VoterIDHash)
		s.NotEqual("voter-3", rec.VoterIDHash)
	})

	s.Run("rejects records without identifiers", func() {
		_, err := s.store.Append(s.ctx, AuditRecord{})
		s.Error(err)
	})
}

// Sequence IDs must stay gapless and strictly increasing under concurrency.
func (s *MemoryStoreSuite) TestConcurrentAppendGapless() {
	const appenders = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool, appenders)

	for i := 0; i < appenders; i++ {
		voterID := "voter-" + string(rune('a'+i%26))
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := s.store.Append(s.ctx, s.record(voterID, "term-A", s.now))
			s.Require().NoError(err)
			mu.Lock()
			s.False(seen[seq], "duplicate sequence ID %d", seq)
			seen[seq] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(seen, appenders)
	for seq := int64(1); seq <= appenders; seq++ {
		s.True(seen[seq], "missing sequence ID %d", seq)
	}
	s.NoError(s.store.VerifyChain(s.ctx))
}

func (s *MemoryStoreSuite) TestVerifyChain() {
	for i := 0; i < 5; i++ {
		_, err := s.store.Append(s.ctx, s.record("voter-1", "term-A", s.now.Add(time.Duration(i)*time.Minute)))
		s.Require().NoError(err)
	}

	s.Run("intact chain verifies", func() {
		s.NoError(s.store.VerifyChain(s.ctx))
	})

	s.Run("edited field breaks the chain", func() {
		s.store.tamper(2, func(r *AuditRecord) { r.Outcome = OutcomeRejected })
		err := s.store.VerifyChain(s.ctx)
		s.Require().Error(err)
		s.ErrorIs(err, sentinel.ErrChainBroken)
	})
}

func (s *MemoryStoreSuite) TestVerifyChainDetectsRehashedTail() {
	for i := 0; i < 3; i++ {
		_, err := s.store.Append(s.ctx, s.record("voter-1", "term-A", s.now.Add(time.Duration(i)*time.Minute)))
		s.Require().NoError(err)
	}

	// Rewrite a middle record and recompute its own hash. The successor's
	// PreviousRecordHash no longer matches, so the edit is still detected.
	s.store.tamper(1, func(r *AuditRecord) {
		r.Outcome = OutcomeRejected
		r.RecordHash = chainHash(*r, r.PreviousRecordHash)
	})
	err := s.store.VerifyChain(s.ctx)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrChainBroken)
}

func (s *MemoryStoreSuite) TestRecentByTerminal() {
	window := 5 * time.Minute

	_, err := s.store.Append(s.ctx, s.record("voter-1", "term-A", s.now.Add(-10*time.Minute)))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.record("voter-2", "term-A", s.now.Add(-2*time.Minute)))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.record("voter-3", "term-B", s.now.Add(-time.Minute)))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.record("voter-4", "term-A", s.now))
	s.Require().NoError(err)

	count, err := s.store.RecentByTerminal(s.ctx, "term-A", window)
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = s.store.RecentByTerminal(s.ctx, "term-C", window)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *MemoryStoreSuite) TestLastByVoter() {
	s.Run("unknown voter returns not found", func() {
		_, err := s.store.LastByVoter(s.ctx, "voter-unknown")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns the most recent record", func() {
		first := s.record("voter-1", "term-A", s.now)
		first.PollingStationID = "station-1"
		_, err := s.store.Append(s.ctx, first)
		s.Require().NoError(err)

		second := s.record("voter-1", "term-B", s.now.Add(time.Hour))
		second.PollingStationID = "station-2"
		_, err = s.store.Append(s.ctx, second)
		s.Require().NoError(err)

		rec, err := s.store.LastByVoter(s.ctx, "voter-1")
		s.Require().NoError(err)
		s.Equal("station-2", rec.PollingStationID)
		s.Equal(int64(2), rec.SequenceID)
	})
}

func (s *MemoryStoreSuite) TestListSince() {
	_, err := s.store.Append(s.ctx, s.record("voter-1", "term-A", s.now.Add(-2*time.Hour)))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.record("voter-2", "term-A", s.now.Add(-30*time.Minute)))
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, s.record("voter-3", "term-A", s.now))
	s.Require().NoError(err)

	records, err := s.store.ListSince(s.ctx, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("voter-2", records[0].VoterID)
	s.Equal("voter-3", records[1].VoterID)
}
