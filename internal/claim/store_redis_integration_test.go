//go:build integration

package claim_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pollguard/internal/claim"
	"pollguard/pkg/testutil/containers"
)

type RedisGuardSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	guard *claim.RedisGuard
}

func TestRedisGuardSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisGuardSuite))
}

func (s *RedisGuardSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.guard = claim.NewRedisGuard(s.redis.Client, 24*time.Hour)
}

func (s *RedisGuardSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisGuardSuite) TestClaimAndReject() {
	ctx := context.Background()
	now := time.Now().UTC()

	result, err := s.guard.TryClaim(ctx, "voter-1", "term-A", now)
	s.Require().NoError(err)
	s.True(result.Claimed)

	result, err = s.guard.TryClaim(ctx, "voter-1", "term-B", now.Add(time.Second))
	s.Require().NoError(err)
	s.False(result.Claimed)
	s.Equal("term-A", result.TerminalID)
	s.WithinDuration(now, result.ClaimedAt, time.Millisecond)
}

func (s *RedisGuardSuite) TestReleaseReopensClaim() {
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.guard.TryClaim(ctx, "voter-1", "term-A", now)
	s.Require().NoError(err)
	s.Require().NoError(s.guard.Release(ctx, "voter-1"))

	result, err := s.guard.TryClaim(ctx, "voter-1", "term-B", now)
	s.Require().NoError(err)
	s.True(result.Claimed)
	s.Equal("term-B", result.TerminalID)
}

func (s *RedisGuardSuite) TestShortHorizonExpires() {
	ctx := context.Background()
	guard := claim.NewRedisGuard(s.redis.Client, 100*time.Millisecond)

	_, err := guard.TryClaim(ctx, "voter-1", "term-A", time.Now())
	s.Require().NoError(err)

	time.Sleep(200 * time.Millisecond)

	result, err := guard.TryClaim(ctx, "voter-1", "term-B", time.Now())
	s.Require().NoError(err)
	s.True(result.Claimed)
}

// Exactly one of N concurrent claimants may win, even across connections.
func (s *RedisGuardSuite) TestConcurrentExactlyOneWinner() {
	ctx := context.Background()
	now := time.Now().UTC()

	const claimants = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.guard.TryClaim(ctx, "voter-contended", "term-X", now)
			s.Require().NoError(err)
			if result.Claimed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	s.Equal(1, winners)
}
