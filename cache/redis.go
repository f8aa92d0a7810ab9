package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	initOnce    sync.Once
	initialized bool
)

// InitRedis connects to Redis using REDIS_ADDR / REDIS_PASSWORD / REDIS_DB.
// If the connection cannot be established, or REDIS_MOCK=true, the package
// falls back to an in-process mock so the server still runs without a cache
// tier. Callers that need a real client must check GetClient.
func InitRedis() error {
	initOnce.Do(func() {
		if os.Getenv("REDIS_MOCK") == "true" {
			log.Println("redis: mock mode forced by REDIS_MOCK")
			mockMode = true
			initialized = true
			return
		}

		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		db := 0
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			if parsed, err := strconv.Atoi(dbStr); err == nil {
				db = parsed
			}
		}

		client := redis.NewClient(&redis.Options{
			Addr:        addr,
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          db,
			DialTimeout: 3 * time.Second,
			ReadTimeout: 3 * time.Second,
			PoolSize:    10,
		})

		if _, err := client.Ping(context.Background()).Result(); err != nil {
			log.Printf("redis: connection to %s failed (%v), falling back to mock mode", addr, err)
			mockMode = true
			initialized = true
			return
		}

		redisClient = client
		initialized = true
		log.Printf("redis: connected to %s", addr)
	})

	return nil
}

// GetClient returns the live Redis client, or an error in mock mode.
func GetClient() (*redis.Client, error) {
	if !initialized {
		return nil, fmt.Errorf("redis not initialized")
	}
	if mockMode {
		return nil, ErrRedisNotAvailable
	}
	return redisClient, nil
}

// IsAvailable reports whether a real Redis connection is up.
func IsAvailable() bool {
	return initialized && !mockMode && redisClient != nil
}

// CloseRedis shuts the connection pool down.
func CloseRedis() {
	if initialized && !mockMode && redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("redis: close error: %v", err)
		}
	}
}
