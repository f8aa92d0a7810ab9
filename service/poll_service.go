package service

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"votemaster-backend/cache"
	"votemaster-backend/model"
	"votemaster-backend/repository"
)

const (
	minOptions = 2
	maxOptions = 10

	// slack for floating point drift in a configured percentage distribution
	percentageSumTolerance = 0.01
)

// VotePublisher fans a committed vote out to async consumers. The vote is
// already durable when PublishVote is called; a publish failure is logged,
// never surfaced to the voter.
type VotePublisher interface {
	PublishVote(pollID, optionKey, fingerprint string) error
}

// PollService owns the poll lifecycle: creation, the public view, voting and
// analytics. The Redis collaborators are optional; with all of them nil the
// service still upholds every invariant through database constraints alone.
type PollService struct {
	polls   repository.PollRepository
	ledger  repository.VoteLedger
	leaders repository.LeaderRepository
	locks   *cache.DistributedLockService
	guard   *cache.VoteGuard
	queue   VotePublisher
}

func NewPollService(
	polls repository.PollRepository,
	ledger repository.VoteLedger,
	leaders repository.LeaderRepository,
	locks *cache.DistributedLockService,
	guard *cache.VoteGuard,
	queue VotePublisher,
) *PollService {
	return &PollService{
		polls:   polls,
		ledger:  ledger,
		leaders: leaders,
		locks:   locks,
		guard:   guard,
		queue:   queue,
	}
}

// CreatePollInput is the validated payload for poll creation. Name is the
// optional custom link name; when empty the link is derived from the leader's
// name and the poll ID.
type CreatePollInput struct {
	LeaderID   string
	Question   string
	Name       string
	InputType  model.InputType
	ResultMode model.ResultMode
	Options    []string
	Displayed  []float64
	StartDate  *time.Time
	EndDate    *time.Time
	ExpiryDate *time.Time
}

// PollView is what a visitor sees on the public poll page: the configured
// displayed results (blended with their own vote if they cast one), never the
// real tallies.
type PollView struct {
	ID          string           `json:"id"`
	Question    string           `json:"question"`
	UniqueLink  string           `json:"unique_link"`
	InputType   model.InputType  `json:"input_type"`
	ResultMode  model.ResultMode `json:"result_mode"`
	Status      model.PollStatus `json:"status"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Options     []string         `json:"options"`
	Results     []float64        `json:"results"`
	HasVoted    bool             `json:"has_voted"`
	VotedOption string           `json:"voted_option,omitempty"`
}

// VoteInput is one ballot. Radio polls send OptionKey; slider polls send
// SliderValue and the option is resolved server side.
type VoteInput struct {
	OptionKey   string
	SliderValue *float64
}

// CreatePoll validates the input, reserves the unique link and persists the
// poll. Link reservation takes the distributed lock when available and always
// ends at the unique index, so two racing creators cannot share a link.
func (s *PollService) CreatePoll(ctx context.Context, input CreatePollInput) (*model.Poll, error) {
	if err := validatePollInput(&input); err != nil {
		return nil, err
	}

	leader, err := s.leaders.GetLeaderByID(ctx, input.LeaderID)
	if err != nil {
		return nil, err
	}
	if leader == nil {
		return nil, ErrLeaderNotFound
	}

	id := uuid.New().String()

	link := Slugify(input.Name)
	if link == "" {
		link = PollSlug(leader.Name, id)
	}

	poll := &model.Poll{
		ID:         id,
		LeaderID:   leader.ID,
		Question:   strings.TrimSpace(input.Question),
		UniqueLink: link,
		InputType:  input.InputType,
		ResultMode: input.ResultMode,
		Status:     model.StatusActive,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		ExpiryDate: input.ExpiryDate,
	}
	for i, text := range input.Options {
		poll.Options = append(poll.Options, model.PollOption{
			PollID:    id,
			Position:  i + 1,
			Text:      strings.TrimSpace(text),
			Displayed: input.Displayed[i],
		})
	}

	err = s.locks.WithLock("slug:"+link, 5*time.Second, func() error {
		taken, err := s.polls.SlugExists(ctx, link)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlugTaken
		}
		return s.polls.CreatePoll(ctx, poll)
	})
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, err
	}

	return poll, nil
}

func validatePollInput(input *CreatePollInput) error {
	if strings.TrimSpace(input.Question) == "" {
		return validationErrorf("question is required")
	}

	if input.InputType == "" {
		input.InputType = model.InputRadio
	}
	if input.InputType != model.InputRadio && input.InputType != model.InputSlider {
		return validationErrorf("unknown input type %q", input.InputType)
	}

	if input.ResultMode == "" {
		input.ResultMode = model.ResultModePercentage
	}
	if input.ResultMode != model.ResultModePercentage && input.ResultMode != model.ResultModeCount {
		return validationErrorf("unknown result mode %q", input.ResultMode)
	}

	if len(input.Options) < minOptions || len(input.Options) > maxOptions {
		return validationErrorf("a poll needs between %d and %d options", minOptions, maxOptions)
	}
	for i, text := range input.Options {
		if strings.TrimSpace(text) == "" {
			return validationErrorf("option %d is empty", i+1)
		}
	}

	if input.Displayed == nil {
		input.Displayed = defaultDisplayed(input.ResultMode, len(input.Options))
	}
	if len(input.Displayed) != len(input.Options) {
		return validationErrorf("displayed results must match the option count")
	}

	switch input.ResultMode {
	case model.ResultModePercentage:
		var sum float64
		for _, v := range input.Displayed {
			if v < 0 || v > 100 {
				return validationErrorf("displayed percentages must be between 0 and 100")
			}
			sum += v
		}
		if math.Abs(sum-100) > percentageSumTolerance {
			return validationErrorf("displayed percentages must add up to 100, got %.2f", sum)
		}
	case model.ResultModeCount:
		for _, v := range input.Displayed {
			if v < 0 {
				return validationErrorf("displayed counts cannot be negative")
			}
		}
	}

	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return validationErrorf("end date cannot be before the start date")
	}

	return nil
}

// defaultDisplayed builds an even split when the leader did not configure
// displayed results. In percentage mode the remainder of an uneven split
// lands on the first option.
func defaultDisplayed(mode model.ResultMode, n int) []float64 {
	out := make([]float64, n)
	if mode == model.ResultModeCount {
		return out
	}
	share := math.Floor(100 / float64(n))
	for i := range out {
		out[i] = share
	}
	out[0] += 100 - share*float64(n)
	return out
}

// ViewPoll serves the public poll page: counts the view, recomputes the
// lifecycle status and blends the viewer's own vote into the displayed
// results if they already cast one.
func (s *PollService) ViewPoll(ctx context.Context, link string, session VoterSession) (*PollView, error) {
	poll, err := s.polls.GetPollByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}

	if err := s.polls.IncrementViewCount(ctx, poll.ID); err != nil {
		log.Printf("poll service: view count increment failed for %s: %v", poll.ID, err)
	}

	votedIndex := -1
	votedKey := ""
	if session.Fingerprint != "" {
		record, err := s.ledger.HasVoted(ctx, poll.ID, session.Fingerprint)
		if err != nil {
			return nil, err
		}
		if record != nil {
			votedKey = record.OptionKey
			if idx, ok := model.ParseOptionKey(record.OptionKey); ok {
				votedIndex = idx
			}
		}
	}

	return buildPollView(poll, votedIndex, votedKey, time.Now()), nil
}

// SubmitVote casts a ballot: gate on status, resolve the option, claim the
// dedup slot, commit the vote and fan it out. The returned view already
// includes the voter's own ballot in the blended results.
func (s *PollService) SubmitVote(ctx context.Context, link string, vote VoteInput, session VoterSession) (*PollView, error) {
	if session.Fingerprint == "" {
		return nil, validationErrorf("voter fingerprint is required")
	}

	poll, err := s.polls.GetPollByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}

	now := time.Now()
	switch ComputeStatus(poll, now) {
	case model.StatusScheduled:
		return nil, &NotStartedError{StartsIn: TimeUntilStart(poll, now)}
	case model.StatusExpired, model.StatusClosed:
		return nil, ErrPollEnded
	}

	votedIndex, err := s.resolveOption(poll, vote)
	if err != nil {
		return nil, err
	}
	optionKey := model.OptionKey(votedIndex)

	if !s.guard.Mark(ctx, poll.ID, session.Fingerprint) {
		return nil, ErrAlreadyVoted
	}

	if err := s.ledger.CommitVote(ctx, poll.ID, session.Fingerprint, optionKey, now); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			return nil, ErrAlreadyVoted
		}
		// the transaction rolled everything back; free the fast-path slot so
		// the voter can retry
		s.guard.Release(ctx, poll.ID, session.Fingerprint)
		return nil, err
	}

	s.polls.InvalidatePoll(ctx, poll)

	if s.queue != nil {
		if err := s.queue.PublishVote(poll.ID, optionKey, session.Fingerprint); err != nil {
			log.Printf("poll service: vote fan-out failed for %s: %v", poll.ID, err)
		}
	}

	return buildPollView(poll, votedIndex, optionKey, now), nil
}

// resolveOption turns the ballot into a zero-based option index. Slider polls
// quantize the slider position; radio polls validate the submitted key.
func (s *PollService) resolveOption(poll *model.Poll, vote VoteInput) (int, error) {
	if poll.InputType == model.InputSlider {
		if vote.SliderValue == nil {
			return 0, validationErrorf("slider value is required for this poll")
		}
		return MapSliderToOption(*vote.SliderValue, len(poll.Options)), nil
	}

	index, ok := model.ParseOptionKey(vote.OptionKey)
	if !ok || index >= len(poll.Options) {
		return 0, ErrOptionNotFound
	}
	return index, nil
}

func buildPollView(poll *model.Poll, votedIndex int, votedKey string, now time.Time) *PollView {
	return &PollView{
		ID:          poll.ID,
		Question:    poll.Question,
		UniqueLink:  poll.UniqueLink,
		InputType:   poll.InputType,
		ResultMode:  poll.ResultMode,
		Status:      ComputeStatus(poll, now),
		StartDate:   poll.StartDate,
		EndDate:     poll.EndDate,
		Options:     poll.OptionTexts(),
		Results:     BlendDisplayedResults(poll.DisplayedResults(), poll.ResultMode, votedIndex),
		HasVoted:    votedIndex >= 0 || votedKey != "",
		VotedOption: votedKey,
	}
}

// GetPoll returns the owner's view of a poll, real tallies included.
func (s *PollService) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	poll, err := s.polls.GetPollByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}
	return poll, nil
}

// ListPollsByLeader returns all polls owned by a leader.
func (s *PollService) ListPollsByLeader(ctx context.Context, leaderID string) ([]model.Poll, error) {
	return s.polls.ListPollsByLeader(ctx, leaderID)
}

// UpdatePollInput carries the editable poll fields. The unique link is
// immutable once created; QR codes and shared links must keep working.
type UpdatePollInput struct {
	Question   *string
	Status     *model.PollStatus
	StartDate  *time.Time
	EndDate    *time.Time
	ExpiryDate *time.Time
	Displayed  []float64
}

// UpdatePoll applies the edit. Displayed results are validated against the
// poll's result mode before being written.
func (s *PollService) UpdatePoll(ctx context.Context, id string, input UpdatePollInput) (*model.Poll, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Question != nil {
		if strings.TrimSpace(*input.Question) == "" {
			return nil, validationErrorf("question is required")
		}
		fields["question"] = strings.TrimSpace(*input.Question)
	}
	if input.Status != nil {
		if *input.Status != model.StatusActive && *input.Status != model.StatusClosed {
			return nil, validationErrorf("status can only be set to active or closed")
		}
		fields["status"] = *input.Status
	}
	if input.StartDate != nil {
		fields["start_date"] = input.StartDate
	}
	if input.EndDate != nil {
		fields["end_date"] = input.EndDate
	}
	if input.ExpiryDate != nil {
		fields["expiry_date"] = input.ExpiryDate
	}

	if input.Displayed != nil {
		if err := validateDisplayed(poll.ResultMode, len(poll.Options), input.Displayed); err != nil {
			return nil, err
		}
		if err := s.polls.UpdateDisplayedResults(ctx, id, input.Displayed); err != nil {
			return nil, err
		}
	}

	if len(fields) > 0 {
		if err := s.polls.UpdatePoll(ctx, id, fields); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrPollNotFound
			}
			return nil, err
		}
	}

	return s.GetPoll(ctx, id)
}

func validateDisplayed(mode model.ResultMode, optionCount int, displayed []float64) error {
	if len(displayed) != optionCount {
		return validationErrorf("displayed results must match the option count")
	}
	switch mode {
	case model.ResultModeCount:
		for _, v := range displayed {
			if v < 0 {
				return validationErrorf("displayed counts cannot be negative")
			}
		}
	default:
		var sum float64
		for _, v := range displayed {
			if v < 0 || v > 100 {
				return validationErrorf("displayed percentages must be between 0 and 100")
			}
			sum += v
		}
		if math.Abs(sum-100) > percentageSumTolerance {
			return validationErrorf("displayed percentages must add up to 100, got %.2f", sum)
		}
	}
	return nil
}

// DeletePoll removes the poll together with its options, ledger entries and
// vote history.
func (s *PollService) DeletePoll(ctx context.Context, id string) error {
	err := s.polls.DeletePoll(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPollNotFound
	}
	return err
}

// GetAnalytics aggregates the real vote history for the owner's dashboard.
func (s *PollService) GetAnalytics(ctx context.Context, pollID string) (*Analytics, error) {
	poll, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	history, err := s.ledger.VoteHistory(ctx, pollID)
	if err != nil {
		return nil, err
	}

	return BuildAnalytics(poll, history, time.Now()), nil
}

// LiveTally is the payload broadcast to dashboard subscribers after each
// vote: real counts, not the displayed narrative.
type LiveTally struct {
	PollID     string           `json:"poll_id"`
	TotalVotes int64            `json:"total_votes"`
	Votes      map[string]int64 `json:"votes"`
}

// BuildLiveTally fetches the current real tallies for broadcast.
func (s *PollService) BuildLiveTally(ctx context.Context, pollID string) (*LiveTally, error) {
	poll, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return &LiveTally{
		PollID:     poll.ID,
		TotalVotes: poll.TotalVotes(),
		Votes:      poll.RealVotes(),
	}, nil
}
