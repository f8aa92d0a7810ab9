package model

import "time"

// VoteRecord is the per-voter dedup entry of the vote ledger. The composite
// primary key (PollID, Fingerprint) makes the insert conditional: the first
// writer wins and a duplicate submission fails at the store instead of
// racing through an application-level check.
type VoteRecord struct {
	PollID      string    `gorm:"primaryKey;size:40" json:"poll_id"`
	Fingerprint string    `gorm:"primaryKey;size:64" json:"-"`
	OptionKey   string    `gorm:"size:16;not null" json:"option_key"`
	VotedAt     time.Time `json:"voted_at"`
}

// VoteEvent is one append-only vote history entry, used by the analytics
// aggregation. Hour is denormalized at write time (0-23, server local time)
// so hourly breakdowns do not depend on the reader's timezone.
type VoteEvent struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PollID    string    `gorm:"size:40;index;not null" json:"poll_id"`
	OptionKey string    `gorm:"size:16;not null" json:"option_key"`
	Hour      int       `gorm:"not null" json:"hour"`
	VotedAt   time.Time `gorm:"not null" json:"voted_at"`
}
