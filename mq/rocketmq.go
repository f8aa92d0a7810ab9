package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
)

// RocketQueue publishes vote events to a RocketMQ topic. The sharding key is
// the poll ID, so events for one poll are consumed in submission order.
type RocketQueue struct {
	producer rocketmq.Producer
	consumer rocketmq.PushConsumer
	nameSrv  string
	handler  Handler

	processedMu sync.RWMutex
	processed   map[string]bool
}

// NewRocketQueue connects a producer to the given name server. An error
// means the caller should fall back to the Redis transport.
func NewRocketQueue(nameSrv string) (*RocketQueue, error) {
	p, err := rocketmq.NewProducer(
		producer.WithNameServer([]string{nameSrv}),
		producer.WithGroupName("vote_producer"),
		producer.WithRetry(2),
		producer.WithSendMsgTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("start producer: %w", err)
	}

	return &RocketQueue{
		producer:  p,
		nameSrv:   nameSrv,
		processed: make(map[string]bool),
	}, nil
}

// Publish sends the event synchronously, keyed by message ID and sharded by
// poll ID.
func (q *RocketQueue) Publish(msg VoteMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal vote message: %w", err)
	}

	m := primitive.NewMessage(TopicVoteEvents, body)
	m.WithTag("vote")
	m.WithKeys([]string{msg.MessageID})
	m.WithShardingKey(msg.PollID)

	if _, err := q.producer.SendSync(context.Background(), m); err != nil {
		return fmt.Errorf("send vote message: %w", err)
	}
	return nil
}

func (q *RocketQueue) RegisterHandler(handler Handler) {
	q.handler = handler
}

// Start subscribes the push consumer. Redelivered messages that were already
// handled are skipped via the in-process processed set.
func (q *RocketQueue) Start() error {
	if q.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	c, err := rocketmq.NewPushConsumer(
		consumer.WithNameServer([]string{q.nameSrv}),
		consumer.WithGroupName("vote_consumer"),
		consumer.WithConsumerModel(consumer.Clustering),
		consumer.WithConsumeFromWhere(consumer.ConsumeFromLastOffset),
	)
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	err = c.Subscribe(TopicVoteEvents, consumer.MessageSelector{
		Type:       consumer.TAG,
		Expression: "vote",
	}, func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		for _, raw := range msgs {
			var msg VoteMessage
			if err := json.Unmarshal(raw.Body, &msg); err != nil {
				log.Printf("mq: bad rocketmq message: %v", err)
				continue
			}

			if q.isProcessed(msg.MessageID) {
				continue
			}

			if err := q.handler(msg); err != nil {
				log.Printf("mq: handler failed for %s: %v", msg.MessageID, err)
				return consumer.ConsumeRetryLater, nil
			}
			q.markProcessed(msg.MessageID)
		}
		return consumer.ConsumeSuccess, nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicVoteEvents, err)
	}

	if err := c.Start(); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	q.consumer = c
	log.Println("mq: rocketmq consumer started")
	return nil
}

func (q *RocketQueue) Stop() {
	if q.consumer != nil {
		if err := q.consumer.Shutdown(); err != nil {
			log.Printf("mq: consumer shutdown error: %v", err)
		}
	}
	if q.producer != nil {
		if err := q.producer.Shutdown(); err != nil {
			log.Printf("mq: producer shutdown error: %v", err)
		}
	}
}

func (q *RocketQueue) isProcessed(messageID string) bool {
	q.processedMu.RLock()
	defer q.processedMu.RUnlock()
	return q.processed[messageID]
}

func (q *RocketQueue) markProcessed(messageID string) {
	q.processedMu.Lock()
	q.processed[messageID] = true
	q.processedMu.Unlock()

	// bound the set; RocketMQ redeliveries arrive well inside this window
	time.AfterFunc(24*time.Hour, func() {
		q.processedMu.Lock()
		delete(q.processed, messageID)
		q.processedMu.Unlock()
	})
}
