package cache

import "errors"

var (
	// ErrRedisNotAvailable is returned when the cache tier is in mock mode
	// or was never initialized.
	ErrRedisNotAvailable = errors.New("redis not available")

	// ErrLockNotAcquired is returned when a distributed lock could not be
	// taken within its retry budget.
	ErrLockNotAcquired = errors.New("could not acquire distributed lock")

	// ErrCacheMiss is returned by PollCache.GetJSON when the key is absent.
	ErrCacheMiss = errors.New("cache miss")
)
