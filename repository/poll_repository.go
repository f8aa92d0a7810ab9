package repository

import (
	"context"
	"errors"
	"time"

	"votemaster-backend/model"
)

var (
	// ErrNotFound reports a missing poll or leader on write paths. Read
	// paths return (nil, nil) so callers can surface a not-found state
	// without error plumbing.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateVote reports that the conditional ledger insert lost:
	// a record for (poll, fingerprint) already exists.
	ErrDuplicateVote = errors.New("vote record already exists")

	// ErrDuplicateKey reports a unique-constraint conflict on a non-ledger
	// write (poll link, leader mobile).
	ErrDuplicateKey = errors.New("duplicate key")
)

// PollRepository is the document-store contract for polls. Implementations
// must return fully normalized polls with options ordered by position.
type PollRepository interface {
	CreatePoll(ctx context.Context, poll *model.Poll) error
	GetPollByID(ctx context.Context, id string) (*model.Poll, error)
	GetPollByLink(ctx context.Context, link string) (*model.Poll, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListPollsByLeader(ctx context.Context, leaderID string) ([]model.Poll, error)
	UpdatePoll(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateDisplayedResults(ctx context.Context, id string, displayed []float64) error
	DeletePoll(ctx context.Context, id string) error
	DeletePollsByLeader(ctx context.Context, leaderID string) error
	IncrementViewCount(ctx context.Context, id string) error
	InvalidatePoll(ctx context.Context, poll *model.Poll)
}

// VoteLedger is the append-only record of cast votes plus the per-voter
// dedup keys. CommitVote is one atomic unit: the conditional dedup insert,
// the tally increment and the history append succeed or roll back together,
// so a failure can never leave a claimed dedup slot with an uncounted
// ballot, and the check-then-act race between HasVoted and the write cannot
// admit a second ballot from the same fingerprint.
type VoteLedger interface {
	HasVoted(ctx context.Context, pollID, fingerprint string) (*model.VoteRecord, error)
	CommitVote(ctx context.Context, pollID, fingerprint, optionKey string, at time.Time) error
	VoteHistory(ctx context.Context, pollID string) ([]model.VoteEvent, error)
}

// LeaderRepository is the document-store contract for leader accounts.
type LeaderRepository interface {
	CreateLeader(ctx context.Context, leader *model.Leader) error
	GetLeaderByID(ctx context.Context, id string) (*model.Leader, error)
	GetLeaderByMobile(ctx context.Context, mobile string) (*model.Leader, error)
	ListLeaders(ctx context.Context) ([]model.Leader, error)
	UpdateLeader(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteLeader(ctx context.Context, id string) error
}
