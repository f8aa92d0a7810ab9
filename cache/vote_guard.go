package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// voteGuardTTL bounds how long a fingerprint stays marked. The database
// ledger is the source of truth; the guard only absorbs repeat submissions
// before they reach it.
const voteGuardTTL = 24 * time.Hour

// VoteGuard is the Redis fast path for vote deduplication. Mark is a SetNX:
// the first request for a (poll, fingerprint) pair wins, repeats are rejected
// without touching the database.
type VoteGuard struct {
	client *redis.Client
}

// NewVoteGuard returns a guard on the shared connection, or nil when Redis
// was never initialized. A nil guard admits everything; the ledger still
// rejects duplicates.
func NewVoteGuard() *VoteGuard {
	if !initialized {
		return nil
	}
	return &VoteGuard{client: redisClient}
}

func voteGuardKey(pollID, fingerprint string) string {
	return fmt.Sprintf("vote_lock:poll:%s:user:%s", pollID, fingerprint)
}

// Mark claims the (poll, fingerprint) slot. Returns false when another
// request already holds it. Errors are reported as admitted so a cache
// outage never blocks voting.
func (g *VoteGuard) Mark(ctx context.Context, pollID, fingerprint string) bool {
	if g == nil {
		return true
	}

	key := voteGuardKey(pollID, fingerprint)

	if g.client == nil {
		mockMutex.Lock()
		defer mockMutex.Unlock()
		if mockLocks[key] {
			return false
		}
		mockLocks[key] = true
		return true
	}

	ok, err := g.client.SetNX(ctx, key, "1", voteGuardTTL).Result()
	if err != nil {
		log.Printf("vote guard: setnx failed, admitting: %v", err)
		return true
	}
	return ok
}

// Release frees the slot after a failed write so the voter can retry.
func (g *VoteGuard) Release(ctx context.Context, pollID, fingerprint string) {
	if g == nil {
		return
	}

	key := voteGuardKey(pollID, fingerprint)

	if g.client == nil {
		mockMutex.Lock()
		delete(mockLocks, key)
		mockMutex.Unlock()
		return
	}

	if err := g.client.Del(ctx, key).Err(); err != nil {
		log.Printf("vote guard: release failed: %v", err)
	}
}
