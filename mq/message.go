// Package mq fans vote events out to interested consumers (live dashboards,
// cache invalidation). Votes are committed to the database before they are
// published, so a lost message can delay a broadcast but never lose a ballot.
package mq

import (
	"time"

	"github.com/google/uuid"
)

// TopicVoteEvents is the RocketMQ topic for vote fan-out.
const TopicVoteEvents = "vote_events"

// VoteMessage is the event published after a vote is committed.
type VoteMessage struct {
	PollID      string `json:"poll_id"`
	OptionKey   string `json:"option_key"`
	Fingerprint string `json:"fingerprint"`
	Timestamp   int64  `json:"timestamp"`
	MessageID   string `json:"message_id"`
}

// Handler consumes vote events. Returning an error triggers a redelivery.
type Handler func(msg VoteMessage) error

// NewVoteMessage stamps the event with a fresh message ID for idempotent
// consumption.
func NewVoteMessage(pollID, optionKey, fingerprint string) VoteMessage {
	return VoteMessage{
		PollID:      pollID,
		OptionKey:   optionKey,
		Fingerprint: fingerprint,
		Timestamp:   time.Now().Unix(),
		MessageID:   uuid.New().String(),
	}
}
