package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPollNotFound       = errors.New("poll not found")
	ErrLeaderNotFound     = errors.New("leader not found")
	ErrOptionNotFound     = errors.New("option not found")
	ErrAlreadyVoted       = errors.New("this device has already voted on this poll")
	ErrSlugTaken          = errors.New("this poll name is already taken")
	ErrPollEnded          = errors.New("this poll has expired and is no longer accepting votes")
	ErrInvalidCredentials = errors.New("invalid mobile number or password")
	ErrMobileTaken        = errors.New("this mobile number is already registered")
)

// ValidationError rejects bad input before anything is written. The message
// is safe to show to the end user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotStartedError gates voting on a scheduled poll and carries the time
// remaining until the poll opens, for the user-facing message.
type NotStartedError struct {
	StartsIn time.Duration
}

func (e *NotStartedError) Error() string {
	return fmt.Sprintf("this poll has not started yet, it opens in %s", e.StartsIn.Round(time.Minute))
}
