package service

import (
	"time"

	"votemaster-backend/model"
)

// ComputeStatus derives the effective lifecycle state of a poll from its
// schedule fields at the given time. It is a pure function and is evaluated
// on every read; the persisted Status column is only consulted as a fallback
// default when no schedule rule matches (e.g. a leader manually closed the
// poll). Precedence, first match wins:
//
//  1. past the hard expiry date        -> expired
//  2. before the start date            -> scheduled
//  3. past the end date                -> expired
//  4. stored status, defaulting active
//
// An end-date based terminal state historically carried the separate label
// "ended"; it is folded into StatusExpired because the voting gate treats
// both identically.
func ComputeStatus(p *model.Poll, now time.Time) model.PollStatus {
	if p.ExpiryDate != nil && now.After(*p.ExpiryDate) {
		return model.StatusExpired
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return model.StatusScheduled
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return model.StatusExpired
	}
	if p.Status != "" {
		return p.Status
	}
	return model.StatusActive
}

// TimeUntilStart reports how long until a scheduled poll opens. Zero when the
// poll has no start date or has already started.
func TimeUntilStart(p *model.Poll, now time.Time) time.Duration {
	if p.StartDate == nil || !now.Before(*p.StartDate) {
		return 0
	}
	return p.StartDate.Sub(now)
}
