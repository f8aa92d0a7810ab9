package mq

import (
	"fmt"
	"log"
	"os"
	"sync"

	"votemaster-backend/cache"
)

// Adapter selects the vote-event transport at startup: RocketMQ when a name
// server is configured, the Redis list queue when Redis is up, and an
// in-process loopback otherwise. The loopback calls the handler directly so
// single-node deployments work with no infrastructure at all.
type Adapter struct {
	rocket  *RocketQueue
	redis   *RedisMQ
	handler Handler

	initOnce sync.Once
	mode     string
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// Initialize picks the transport. It never fails hard; the loopback is the
// terminal fallback.
func (a *Adapter) Initialize() {
	a.initOnce.Do(func() {
		if nameSrv := os.Getenv("ROCKETMQ_NAMESRV_ADDR"); nameSrv != "" {
			rocket, err := NewRocketQueue(nameSrv)
			if err == nil {
				a.rocket = rocket
				a.mode = "rocketmq"
				log.Printf("mq: using rocketmq at %s", nameSrv)
				return
			}
			log.Printf("mq: rocketmq unavailable (%v), trying redis", err)
		}

		if client, err := cache.GetClient(); err == nil {
			a.redis = NewRedisMQ(client)
			a.mode = "redis"
			log.Println("mq: using redis list queue")
			return
		}

		a.mode = "loopback"
		log.Println("mq: no broker available, using in-process loopback")
	})
}

// RegisterHandler wires the consumer side and starts it.
func (a *Adapter) RegisterHandler(handler Handler) error {
	a.handler = handler

	switch a.mode {
	case "rocketmq":
		a.rocket.RegisterHandler(handler)
		return a.rocket.Start()
	case "redis":
		a.redis.RegisterHandler(handler)
		return a.redis.Start()
	case "loopback":
		return nil
	default:
		return fmt.Errorf("adapter not initialized")
	}
}

// PublishVote builds and sends the vote event.
func (a *Adapter) PublishVote(pollID, optionKey, fingerprint string) error {
	msg := NewVoteMessage(pollID, optionKey, fingerprint)

	switch a.mode {
	case "rocketmq":
		return a.rocket.Publish(msg)
	case "redis":
		return a.redis.Publish(msg)
	case "loopback":
		if a.handler != nil {
			go func() {
				if err := a.handler(msg); err != nil {
					log.Printf("mq: loopback handler failed: %v", err)
				}
			}()
		}
		return nil
	default:
		return fmt.Errorf("adapter not initialized")
	}
}

// RetryDeadLetters is only meaningful on the Redis transport.
func (a *Adapter) RetryDeadLetters() error {
	if a.mode != "redis" {
		return fmt.Errorf("dead letter retry unsupported on %s transport", a.mode)
	}
	return a.redis.RetryDeadLetters()
}

// Stats reports the transport in use plus queue depths where available.
func (a *Adapter) Stats() map[string]interface{} {
	stats := map[string]interface{}{"transport": a.mode}
	if a.mode == "redis" {
		stats["queues"] = a.redis.QueueStats()
	}
	return stats
}

func (a *Adapter) Close() {
	switch a.mode {
	case "rocketmq":
		a.rocket.Stop()
	case "redis":
		a.redis.Stop()
	}
}
