package cache

import (
	"context"
	"hash/fnv"

	"github.com/redis/go-redis/v9"
)

// BloomFilter is a Redis bitmap bloom filter over poll links. A cache miss on
// the public view path consults it before hitting the database, so random
// link probing cannot turn into a table scan per request.
type BloomFilter struct {
	client    *redis.Client
	key       string
	hashCount int
}

// NewBloomFilter returns a filter on the shared connection, or nil when
// Redis is unavailable. A nil filter reports everything as possibly present.
func NewBloomFilter(name string, hashCount int) *BloomFilter {
	client, err := GetClient()
	if err != nil {
		return nil
	}
	return &BloomFilter{
		client:    client,
		key:       "bloom:" + name,
		hashCount: hashCount,
	}
}

// Add inserts item into the filter.
func (bf *BloomFilter) Add(ctx context.Context, item string) error {
	if bf == nil {
		return nil
	}

	pipe := bf.client.Pipeline()
	for i := 0; i < bf.hashCount; i++ {
		pipe.SetBit(ctx, bf.key, bf.hash(item, i), 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Warm seeds the filter with already-known items in one pipeline. Run at
// startup against every existing link so entries created while Redis was
// down, or lost with the Redis data, are represented again.
func (bf *BloomFilter) Warm(ctx context.Context, items []string) error {
	if bf == nil || len(items) == 0 {
		return nil
	}

	pipe := bf.client.Pipeline()
	for _, item := range items {
		for i := 0; i < bf.hashCount; i++ {
			pipe.SetBit(ctx, bf.key, bf.hash(item, i), 1)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Contains reports whether item may be in the set. False positives are
// possible, false negatives are not. An absent bitmap means the filter was
// never warmed, not that the set is empty, so it passes everything through.
func (bf *BloomFilter) Contains(ctx context.Context, item string) bool {
	if bf == nil {
		return true
	}

	exists, err := bf.client.Exists(ctx, bf.key).Result()
	if err != nil || exists == 0 {
		return true
	}

	pipe := bf.client.Pipeline()
	cmds := make([]*redis.IntCmd, 0, bf.hashCount)
	for i := 0; i < bf.hashCount; i++ {
		cmds = append(cmds, pipe.GetBit(ctx, bf.key, bf.hash(item, i)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false
		}
	}
	return true
}

func (bf *BloomFilter) hash(item string, seed int) int64 {
	h := fnv.New64a()
	h.Write([]byte(item))
	h.Write([]byte{byte(seed)})
	return int64(h.Sum64() % uint64(1<<30))
}
