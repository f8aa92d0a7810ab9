package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"votemaster-backend/database"
	"votemaster-backend/model"
	"votemaster-backend/repository"
)

func newTestServices(t *testing.T) (*PollService, *LeaderService) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	store := repository.NewGormStore(db)
	polls := NewPollService(store, store, store, nil, nil, nil)
	leaders := NewLeaderService(store, store)
	return polls, leaders
}

func createTestLeader(t *testing.T, leaders *LeaderService) *model.Leader {
	t.Helper()

	leader, err := leaders.CreateLeader(context.Background(), CreateLeaderInput{
		Name:     "Ram Chate",
		Mobile:   uuid.New().String()[:10],
		Password: "secret1",
	})
	require.NoError(t, err)
	return leader
}

func createTestPoll(t *testing.T, polls *PollService, leaderID string, input CreatePollInput) *model.Poll {
	t.Helper()

	input.LeaderID = leaderID
	if input.Question == "" {
		input.Question = "Best option?"
	}
	if input.Options == nil {
		input.Options = []string{"A", "B"}
		input.Displayed = []float64{60, 40}
	}
	poll, err := polls.CreatePoll(context.Background(), input)
	require.NoError(t, err)
	return poll
}

func TestCreatePoll_Validation(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)

	tests := []struct {
		name  string
		input CreatePollInput
	}{
		{
			name:  "empty question",
			input: CreatePollInput{Question: "  ", Options: []string{"A", "B"}},
		},
		{
			name:  "too few options",
			input: CreatePollInput{Question: "Q", Options: []string{"A"}},
		},
		{
			name:  "blank option",
			input: CreatePollInput{Question: "Q", Options: []string{"A", " "}},
		},
		{
			name:  "unknown input type",
			input: CreatePollInput{Question: "Q", Options: []string{"A", "B"}, InputType: "dial"},
		},
		{
			name: "percentages not summing to 100",
			input: CreatePollInput{
				Question:  "Q",
				Options:   []string{"A", "B"},
				Displayed: []float64{60, 50},
			},
		},
		{
			name: "displayed length mismatch",
			input: CreatePollInput{
				Question:  "Q",
				Options:   []string{"A", "B"},
				Displayed: []float64{100},
			},
		},
		{
			name: "end before start",
			input: CreatePollInput{
				Question:  "Q",
				Options:   []string{"A", "B"},
				StartDate: timePtr(time.Now().Add(2 * time.Hour)),
				EndDate:   timePtr(time.Now().Add(time.Hour)),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.LeaderID = leader.ID
			_, err := polls.CreatePoll(context.Background(), tc.input)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreatePoll_Defaults(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)

	poll, err := polls.CreatePoll(context.Background(), CreatePollInput{
		LeaderID: leader.ID,
		Question: "Best day?",
		Options:  []string{"Mon", "Tue", "Wed"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.InputRadio, poll.InputType)
	assert.Equal(t, model.ResultModePercentage, poll.ResultMode)
	// even split, remainder on the first option
	assert.Equal(t, []float64{34, 33, 33}, poll.DisplayedResults())
	// derived link carries the leader's slug
	assert.Contains(t, poll.UniqueLink, "ram-chate-")
}

func TestCreatePoll_CustomNameAndConflict(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)

	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{Name: "Team Lunch"})
	assert.Equal(t, "team-lunch", poll.UniqueLink)

	_, err := polls.CreatePoll(context.Background(), CreatePollInput{
		LeaderID:  leader.ID,
		Question:  "Another?",
		Name:      "Team Lunch",
		Options:   []string{"A", "B"},
		Displayed: []float64{50, 50},
	})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreatePoll_UnknownLeader(t *testing.T) {
	polls, _ := newTestServices(t)

	_, err := polls.CreatePoll(context.Background(), CreatePollInput{
		LeaderID: "missing",
		Question: "Q",
		Options:  []string{"A", "B"},
	})
	assert.ErrorIs(t, err, ErrLeaderNotFound)
}

func TestSubmitVote_RadioFlow(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})
	session := VoterSession{Fingerprint: "user_abc"}

	view, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, session)
	require.NoError(t, err)

	assert.True(t, view.HasVoted)
	assert.Equal(t, "option1", view.VotedOption)
	// the voter sees their own ballot blended into the displayed numbers
	assert.Equal(t, []float64{61, 39}, view.Results)

	// the real tally moved underneath
	owned, err := polls.GetPoll(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owned.Options[0].Votes)
	assert.Equal(t, int64(0), owned.Options[1].Votes)
}

func TestSubmitVote_DuplicateRejected(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})
	session := VoterSession{Fingerprint: "user_abc"}

	_, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, session)
	require.NoError(t, err)

	_, err = polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option2"}, session)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	// a different device still gets through
	_, err = polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option2"}, VoterSession{Fingerprint: "user_def"})
	require.NoError(t, err)

	owned, err := polls.GetPoll(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), owned.TotalVotes())
}

func TestSubmitVote_SliderResolvesOption(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{
		InputType: model.InputSlider,
		Options:   []string{"A", "B", "C"},
		Displayed: []float64{40, 30, 30},
	})

	value := 100.0
	view, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{SliderValue: &value}, VoterSession{Fingerprint: "user_abc"})
	require.NoError(t, err)
	assert.Equal(t, "option3", view.VotedOption)

	_, err = polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{}, VoterSession{Fingerprint: "user_def"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSubmitVote_Gates(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)

	t.Run("missing fingerprint", func(t *testing.T) {
		poll := createTestPoll(t, polls, leader.ID, CreatePollInput{Name: "no-fp"})
		_, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, VoterSession{})

		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown link", func(t *testing.T) {
		_, err := polls.SubmitVote(context.Background(), "no-such-poll", VoteInput{OptionKey: "option1"}, VoterSession{Fingerprint: "user_abc"})
		assert.ErrorIs(t, err, ErrPollNotFound)
	})

	t.Run("unknown option", func(t *testing.T) {
		poll := createTestPoll(t, polls, leader.ID, CreatePollInput{Name: "bad-option"})
		_, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option9"}, VoterSession{Fingerprint: "user_abc"})
		assert.ErrorIs(t, err, ErrOptionNotFound)
	})

	t.Run("not started yet", func(t *testing.T) {
		poll := createTestPoll(t, polls, leader.ID, CreatePollInput{
			Name:      "future",
			StartDate: timePtr(time.Now().Add(time.Hour)),
		})
		_, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, VoterSession{Fingerprint: "user_abc"})

		var nserr *NotStartedError
		require.ErrorAs(t, err, &nserr)
		assert.Greater(t, nserr.StartsIn, time.Duration(0))
	})

	t.Run("expired", func(t *testing.T) {
		poll := createTestPoll(t, polls, leader.ID, CreatePollInput{
			Name:       "past",
			ExpiryDate: timePtr(time.Now().Add(-time.Hour)),
		})
		_, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, VoterSession{Fingerprint: "user_abc"})
		assert.ErrorIs(t, err, ErrPollEnded)
	})

	t.Run("manually closed", func(t *testing.T) {
		poll := createTestPoll(t, polls, leader.ID, CreatePollInput{Name: "closing"})
		closed := model.StatusClosed
		_, err := polls.UpdatePoll(context.Background(), poll.ID, UpdatePollInput{Status: &closed})
		require.NoError(t, err)

		_, err = polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, VoterSession{Fingerprint: "user_abc"})
		assert.ErrorIs(t, err, ErrPollEnded)
	})
}

// outageLedger fails a number of commits before delegating, simulating a
// transient store outage mid-vote.
type outageLedger struct {
	repository.VoteLedger
	failures int
}

func (l *outageLedger) CommitVote(ctx context.Context, pollID, fingerprint, optionKey string, at time.Time) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("store unavailable")
	}
	return l.VoteLedger.CommitVote(ctx, pollID, fingerprint, optionKey, at)
}

func TestSubmitVote_FailedCommitLeavesNoPartialState(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})
	session := VoterSession{Fingerprint: "user_abc"}

	shaky := NewPollService(polls.polls, &outageLedger{VoteLedger: polls.ledger, failures: 1}, polls.leaders, nil, nil, nil)

	_, err := shaky.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, session)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyVoted)

	// nothing was committed, so the same voter's retry must succeed
	view, err := shaky.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option1"}, session)
	require.NoError(t, err)
	assert.True(t, view.HasVoted)

	owned, err := polls.GetPoll(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owned.TotalVotes())
}

func TestViewPoll(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})

	view, err := polls.ViewPoll(context.Background(), poll.UniqueLink, VoterSession{Fingerprint: "user_abc"})
	require.NoError(t, err)
	assert.False(t, view.HasVoted)
	// an anonymous visitor sees the configured numbers untouched
	assert.Equal(t, []float64{60, 40}, view.Results)
	assert.Equal(t, model.StatusActive, view.Status)

	_, err = polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option2"}, VoterSession{Fingerprint: "user_abc"})
	require.NoError(t, err)

	view, err = polls.ViewPoll(context.Background(), poll.UniqueLink, VoterSession{Fingerprint: "user_abc"})
	require.NoError(t, err)
	assert.True(t, view.HasVoted)
	assert.Equal(t, "option2", view.VotedOption)
	assert.Equal(t, []float64{59, 41}, view.Results)

	// every page load counts a view
	owned, err := polls.GetPoll(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), owned.ViewCount)

	_, err = polls.ViewPoll(context.Background(), "no-such-poll", VoterSession{})
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestUpdatePoll(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})

	question := "Updated question?"
	updated, err := polls.UpdatePoll(context.Background(), poll.ID, UpdatePollInput{
		Question:  &question,
		Displayed: []float64{25, 75},
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated question?", updated.Question)
	assert.Equal(t, []float64{25, 75}, updated.DisplayedResults())
	assert.Equal(t, poll.UniqueLink, updated.UniqueLink)

	_, err = polls.UpdatePoll(context.Background(), poll.ID, UpdatePollInput{Displayed: []float64{60, 60}})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	badStatus := model.StatusExpired
	_, err = polls.UpdatePoll(context.Background(), poll.ID, UpdatePollInput{Status: &badStatus})
	assert.ErrorAs(t, err, &verr)

	_, err = polls.UpdatePoll(context.Background(), "missing", UpdatePollInput{Question: &question})
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestDeletePoll(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})

	require.NoError(t, polls.DeletePoll(context.Background(), poll.ID))

	_, err := polls.GetPoll(context.Background(), poll.ID)
	assert.ErrorIs(t, err, ErrPollNotFound)

	assert.ErrorIs(t, polls.DeletePoll(context.Background(), poll.ID), ErrPollNotFound)
}

func TestGetAnalytics(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})

	for i, key := range []string{"option1", "option1", "option2"} {
		fp := fmt.Sprintf("user_%d", i)
		_, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: key}, VoterSession{Fingerprint: fp})
		require.NoError(t, err)
	}

	analytics, err := polls.GetAnalytics(context.Background(), poll.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), analytics.TotalVotes)
	assert.Equal(t, map[string]int64{"option1": 2, "option2": 1}, analytics.Votes)
	assert.Equal(t, int64(3), analytics.PeakHour.Count)
	assert.Len(t, analytics.VotesOverTime, 7)
	assert.Equal(t, int64(3), analytics.VotesOverTime[6].Votes)
}

func TestBuildLiveTally(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})

	_, err := polls.SubmitVote(context.Background(), poll.UniqueLink, VoteInput{OptionKey: "option2"}, VoterSession{Fingerprint: "user_abc"})
	require.NoError(t, err)

	tally, err := polls.BuildLiveTally(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.TotalVotes)
	assert.Equal(t, map[string]int64{"option1": 0, "option2": 1}, tally.Votes)
}

func TestLeaderService_CreateAndAuthenticate(t *testing.T) {
	_, leaders := newTestServices(t)

	leader, err := leaders.CreateLeader(context.Background(), CreateLeaderInput{
		Name:     "Ram Chate",
		Mobile:   "9876543210",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleLeader, leader.Role)
	assert.Contains(t, leader.Slug, "ram-chate-")

	authed, err := leaders.Authenticate(context.Background(), "9876543210", "secret1")
	require.NoError(t, err)
	assert.Equal(t, leader.ID, authed.ID)

	_, err = leaders.Authenticate(context.Background(), "9876543210", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = leaders.Authenticate(context.Background(), "0000000000", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = leaders.CreateLeader(context.Background(), CreateLeaderInput{
		Name:     "Copycat",
		Mobile:   "9876543210",
		Password: "secret2",
	})
	assert.ErrorIs(t, err, ErrMobileTaken)

	_, err = leaders.CreateLeader(context.Background(), CreateLeaderInput{
		Name:     "Shorty",
		Mobile:   "1111111111",
		Password: "123",
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLeaderService_DeleteCascadesPolls(t *testing.T) {
	polls, leaders := newTestServices(t)
	leader := createTestLeader(t, leaders)
	poll := createTestPoll(t, polls, leader.ID, CreatePollInput{})

	require.NoError(t, leaders.DeleteLeader(context.Background(), leader.ID))

	_, err := leaders.GetLeader(context.Background(), leader.ID)
	assert.ErrorIs(t, err, ErrLeaderNotFound)

	_, err = polls.GetPoll(context.Background(), poll.ID)
	assert.ErrorIs(t, err, ErrPollNotFound)
}
