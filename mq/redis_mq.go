package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue name constants. Messages move main -> processing atomically via
// BRPOPLPUSH; a message that fails too often lands in the dead letter list.
const (
	mainQueue       = "vote_queue"
	processingQueue = "vote_processing"
	deadLetterQueue = "vote_dead_letter"
	retriesHash     = "vote_retries"
	processedSet    = "vote_message_ids"
)

// RedisMQ is a Redis-list message queue with a processing list, retry
// counting and a dead letter queue. It is the fallback transport when no
// RocketMQ name server is configured.
type RedisMQ struct {
	client     *redis.Client
	ctx        context.Context
	handler    Handler
	running    bool
	stopChan   chan struct{}
	wg         sync.WaitGroup
	maxRetries int
	retryDelay time.Duration
	staleAfter time.Duration
}

func NewRedisMQ(client *redis.Client) *RedisMQ {
	return &RedisMQ{
		client:     client,
		ctx:        context.Background(),
		stopChan:   make(chan struct{}),
		maxRetries: 3,
		retryDelay: 30 * time.Second,
		staleAfter: 5 * time.Minute,
	}
}

// Publish pushes the event onto the main queue. Duplicate message IDs are
// weeded out on the consumer side, after a successful handle, so publishing
// never claims a message as processed before it was.
func (r *RedisMQ) Publish(msg VoteMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal vote message: %w", err)
	}

	if err := r.client.LPush(r.ctx, mainQueue, data).Err(); err != nil {
		return fmt.Errorf("push vote message: %w", err)
	}
	return nil
}

// Start begins consuming. RegisterHandler must have been called first.
func (r *RedisMQ) Start() error {
	if r.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	if r.running {
		return nil
	}
	r.running = true

	r.wg.Add(2)
	go r.consumeLoop()
	go r.timeoutLoop()

	log.Println("mq: redis consumer started")
	return nil
}

func (r *RedisMQ) RegisterHandler(handler Handler) {
	r.handler = handler
}

func (r *RedisMQ) Stop() {
	if !r.running {
		return
	}
	close(r.stopChan)
	r.wg.Wait()
	r.running = false
}

func (r *RedisMQ) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopChan:
			return
		default:
			data, err := r.client.BRPopLPush(r.ctx, mainQueue, processingQueue, time.Second).Result()
			if err != nil {
				if err != redis.Nil {
					log.Printf("mq: pop failed: %v", err)
				}
				continue
			}
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.process(data)
			}()
		}
	}
}

// process handles one message off the processing list. The message is only
// removed from that list once it is settled: handled, dead lettered, or
// parked for retry. A crash at any other point leaves it where the stale
// sweep can find it.
func (r *RedisMQ) process(data string) {
	var msg VoteMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		log.Printf("mq: bad message, dead lettering: %v", err)
		r.deadLetter(data)
		return
	}

	seen, err := r.client.SIsMember(r.ctx, processedSet, msg.MessageID).Result()
	if err != nil {
		log.Printf("mq: idempotency check failed: %v", err)
	} else if seen {
		r.client.LRem(r.ctx, processingQueue, 1, data)
		return
	}

	if err := r.handler(msg); err != nil {
		log.Printf("mq: handler failed for %s: %v", msg.MessageID, err)
		r.retryOrBury(msg, data)
		return
	}

	// mark processed only after the handler succeeded
	if err := r.client.SAdd(r.ctx, processedSet, msg.MessageID).Err(); err != nil {
		log.Printf("mq: record message id failed: %v", err)
	}
	r.client.Expire(r.ctx, processedSet, 48*time.Hour)
	r.client.HDel(r.ctx, retriesHash, msg.MessageID)
	r.client.LRem(r.ctx, processingQueue, 1, data)
}

// retryOrBury parks a refreshed copy of the message in the processing list
// for the retry delay, then moves it back to the main queue. The message is
// in a Redis list for the whole window, so a consumer crash during the delay
// loses nothing; the stale sweep will requeue the parked copy.
func (r *RedisMQ) retryOrBury(msg VoteMessage, data string) {
	retries, _ := r.client.HGet(r.ctx, retriesHash, msg.MessageID).Int()
	if retries >= r.maxRetries {
		log.Printf("mq: %s exceeded retry budget, dead lettering", msg.MessageID)
		r.deadLetter(data)
		return
	}

	r.client.HIncrBy(r.ctx, retriesHash, msg.MessageID, 1)
	msg.Timestamp = time.Now().Unix()
	updated, _ := json.Marshal(msg)
	r.client.LPush(r.ctx, processingQueue, updated)
	r.client.LRem(r.ctx, processingQueue, 1, data)
	time.AfterFunc(r.retryDelay, func() {
		// the stale sweep may have beaten us to it; only requeue what we
		// actually removed
		removed, err := r.client.LRem(r.ctx, processingQueue, 1, updated).Result()
		if err != nil || removed == 0 {
			return
		}
		r.client.LPush(r.ctx, mainQueue, updated)
	})
}

// timeoutLoop requeues messages stuck in the processing list, e.g. after a
// consumer crash mid-handle.
func (r *RedisMQ) timeoutLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.requeueStale()
		}
	}
}

func (r *RedisMQ) requeueStale() {
	messages, err := r.client.LRange(r.ctx, processingQueue, 0, -1).Result()
	if err != nil {
		log.Printf("mq: scan processing queue failed: %v", err)
		return
	}

	now := time.Now().Unix()
	for _, data := range messages {
		var msg VoteMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		if now-msg.Timestamp <= int64(r.staleAfter.Seconds()) {
			continue
		}
		r.client.LRem(r.ctx, processingQueue, 1, data)
		r.retryOrBury(msg, data)
	}
}

func (r *RedisMQ) deadLetter(data string) {
	r.client.LPush(r.ctx, deadLetterQueue, data)
	r.client.LRem(r.ctx, processingQueue, 1, data)
}

// RetryDeadLetters moves every buried message back to the main queue with a
// reset retry count.
func (r *RedisMQ) RetryDeadLetters() error {
	messages, err := r.client.LRange(r.ctx, deadLetterQueue, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("read dead letter queue: %w", err)
	}

	for _, data := range messages {
		if err := r.client.LPush(r.ctx, mainQueue, data).Err(); err != nil {
			log.Printf("mq: requeue dead letter failed: %v", err)
			continue
		}
		r.client.LRem(r.ctx, deadLetterQueue, 1, data)
		var msg VoteMessage
		if json.Unmarshal([]byte(data), &msg) == nil {
			r.client.HDel(r.ctx, retriesHash, msg.MessageID)
		}
	}
	return nil
}

// QueueStats reports the depth of each list.
func (r *RedisMQ) QueueStats() map[string]int64 {
	mainLen, _ := r.client.LLen(r.ctx, mainQueue).Result()
	procLen, _ := r.client.LLen(r.ctx, processingQueue).Result()
	deadLen, _ := r.client.LLen(r.ctx, deadLetterQueue).Result()

	return map[string]int64{
		"main_queue":        mainLen,
		"processing_queue":  procLen,
		"dead_letter_queue": deadLen,
	}
}
