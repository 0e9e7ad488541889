//go:build integration

package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pollguard/internal/ledger"
	"pollguard/pkg/platform/sentinel"
	"pollguard/pkg/requestcontext"
	"pollguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *ledger.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = ledger.NewPostgres(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE audit_records`)
	s.Require().NoError(err)
}

func record(voterID, terminalID string, at time.Time) ledger.AuditRecord {
	return ledger.AuditRecord{
		VoterID:          voterID,
		TerminalID:       terminalID,
		PollingStationID: "station-1",
		Method:           "card",
		DurationSeconds:  4.2,
		Outcome:          ledger.OutcomeVerified,
		Verdict: ledger.Verdict{
			IsSuspicious: true,
			Confidence:   0.8,
			Reasons:      []string{"Verification speed abnormally fast"},
		},
		RecordedAt: at,
	}
}

func (s *PostgresStoreSuite) TestAppendAndRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC()

	seq, err := s.store.Append(ctx, record("voter-1", "term-A", now))
	s.Require().NoError(err)
	s.Equal(int64(1), seq)

	rec, err := s.store.LastByVoter(ctx, "voter-1")
	s.Require().NoError(err)
	s.Equal(int64(1), rec.SequenceID)
	s.Equal(ledger.HashID("voter-1"), rec.VoterIDHash)
	s.Empty(rec.PreviousRecordHash)
	s.True(rec.Verdict.IsSuspicious)
	s.Equal([]string{"Verification speed abnormally fast"}, rec.Verdict.Reasons)

	// The chain must verify from what the database returns, not from what
	// was held in memory at append time.
	s.NoError(s.store.VerifyChain(ctx))
}

func (s *PostgresStoreSuite) TestChainSurvivesManyAppends() {
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 20; i++ {
		_, err := s.store.Append(ctx, record("voter-1", "term-A", now.Add(time.Duration(i)*time.Second)))
		s.Require().NoError(err)
	}
	s.NoError(s.store.VerifyChain(ctx))
}

func (s *PostgresStoreSuite) TestVerifyChainDetectsEdit() {
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := s.store.Append(ctx, record("voter-1", "term-A", now.Add(time.Duration(i)*time.Second)))
		s.Require().NoError(err)
	}

	_, err := s.pg.DB.Exec(`UPDATE audit_records SET outcome = 'rejected' WHERE sequence_id = 2`)
	s.Require().NoError(err)

	err = s.store.VerifyChain(ctx)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrChainBroken)
}

// The advisory lock must keep concurrent appends gapless.
func (s *PostgresStoreSuite) TestConcurrentAppendGapless() {
	ctx := context.Background()
	now := time.Now().UTC()

	const appenders = 30
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool, appenders)

	for i := 0; i < appenders; i++ {
		voterID := "voter-" + string(rune('a'+i%26))
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := s.store.Append(ctx, record(voterID, "term-A", now))
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
	s.NoError(s.store.VerifyChain(ctx))
}

func (s *PostgresStoreSuite) TestRecentByTerminal() {
	now := time.Now().UTC()
	ctx := requestcontext.WithTime(context.Background(), now)

	_, err := s.store.Append(ctx, record("voter-1", "term-A", now.Add(-10*time.Minute)))
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, record("voter-2", "term-A", now.Add(-time.Minute)))
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, record("voter-3", "term-B", now))
	s.Require().NoError(err)

	count, err := s.store.RecentByTerminal(ctx, "term-A", 5*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestLastByVoterNotFound() {
	_, err := s.store.LastByVoter(context.Background(), "voter-unknown")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListSince() {
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.store.Append(ctx, record("voter-1", "term-A", now.Add(-2*time.Hour)))
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, record("voter-2", "term-A", now))
	s.Require().NoError(err)

	records, err := s.store.ListSince(ctx, now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("voter-2", records[0].VoterID)
}
