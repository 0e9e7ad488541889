package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimKeyPrefix = "claim:voter:"

// claimValue is the JSON stored under the claim key so losing terminals can
// report who holds the claim and since when.
type claimValue struct {
	TerminalID string    `json:"terminal_id"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

// RedisGuard is the production guard for distributed deployments. The claim
// transition is a single SET NX PX, which Redis executes atomically, so the
// exactly-once property holds across orchestrator instances.
type RedisGuard struct {
	client  *redis.Client
	horizon time.Duration
}

// NewRedisGuard constructs a Redis-backed guard with the given claim horizon.
func NewRedisGuard(client *redis.Client, horizon time.Duration) *RedisGuard {
	return &RedisGuard{client: client, horizon: horizon}
}

// TryClaim attempts SET NX on the voter's claim key. When the key already
// exists the existing claim is read back for the rejection response.
func (g *RedisGuard) TryClaim(ctx context.Context, voterID, terminalID string, now time.Time) (Result, error) {
	if voterID == "" {
		return Result{}, fmt.Errorf("voter ID must not be empty")
	}

	key := claimKeyPrefix + voterID
	payload, err := json.Marshal(claimValue{TerminalID: terminalID, ClaimedAt: now})
	if err != nil {
		return Result{}, fmt.Errorf("marshal claim: %w", err)
	}

	// The key may expire between a failed SET NX and the follow-up GET, so
	// retry the pair until one side wins decisively.
	for attempt := 0; attempt < 3; attempt++ {
		ok, err := g.client.SetNX(ctx, key, payload, g.horizon).Result()
		if err != nil {
			return Result{}, fmt.Errorf("claim setnx: %w", err)
		}
		if ok {
			return Result{Claimed: true, TerminalID: terminalID, ClaimedAt: now}, nil
		}

		raw, err := g.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("claim get: %w", err)
		}

		var existing claimValue
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return Result{}, fmt.Errorf("unmarshal existing claim: %w", err)
		}
		return Result{
			Claimed:    false,
			TerminalID: existing.TerminalID,
			ClaimedAt:  existing.ClaimedAt,
		}, nil
	}
	return Result{}, fmt.Errorf("claim for voter contended beyond retry budget")
}

// Release deletes the claim key.
func (g *RedisGuard) Release(ctx context.Context, voterID string) error {
	return g.client.Del(ctx, claimKeyPrefix+voterID).Err()
}
