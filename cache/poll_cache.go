package cache

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// pollTTL is the base expiry for cached polls. A per-key jitter is added
	// so a burst of writes cannot expire the whole cache at once.
	pollTTL = 1 * time.Hour

	// doubleDeleteDelay is the gap before the second delete when
	// invalidating. The first delete drops the stale entry, the second
	// catches a concurrent reader that re-filled it from a pre-write
	// snapshot.
	doubleDeleteDelay = 10 * time.Millisecond
)

// PollCache stores JSON-encoded polls in Redis. In mock mode it degrades to
// the in-process map so the rest of the stack does not need nil checks.
type PollCache struct {
	client *redis.Client
}

// NewPollCache returns a cache bound to the shared Redis connection, or nil
// if InitRedis was never called. A nil *PollCache is safe to use; every
// method is a miss or a no-op.
func NewPollCache() *PollCache {
	if !initialized {
		return nil
	}
	return &PollCache{client: redisClient}
}

// GetJSON loads key and decodes it into dest. Returns ErrCacheMiss when the
// key is absent.
func (c *PollCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return ErrCacheMiss
	}

	var raw string
	if c.client == nil {
		mockMutex.Lock()
		data, ok := mockData[key]
		mockMutex.Unlock()
		if !ok {
			return ErrCacheMiss
		}
		raw = data
	} else {
		data, err := c.client.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}
		raw = data
	}

	return json.Unmarshal([]byte(raw), dest)
}

// SetJSON stores value under key with a jittered TTL.
func (c *PollCache) SetJSON(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal %s failed: %v", key, err)
		return
	}

	if c.client == nil {
		mockMutex.Lock()
		mockData[key] = string(data)
		mockMutex.Unlock()
		return
	}

	ttl := pollTTL + time.Duration(rand.Int63n(int64(pollTTL/10)))
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}

// Delete removes keys immediately.
func (c *PollCache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}

	if c.client == nil {
		mockMutex.Lock()
		for _, key := range keys {
			delete(mockData, key)
		}
		mockMutex.Unlock()
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache: delete failed: %v", err)
	}
}

// Invalidate performs a delayed double delete so readers racing with the
// write cannot pin a stale snapshot.
func (c *PollCache) Invalidate(keys ...string) {
	if c == nil {
		return
	}
	c.Delete(context.Background(), keys...)
	time.AfterFunc(doubleDeleteDelay, func() {
		c.Delete(context.Background(), keys...)
	})
}
