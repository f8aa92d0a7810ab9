package service

import (
	"math"
	"time"

	"votemaster-backend/model"
)

// HourCount is one hour bucket of the hourly vote distribution.
type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// DayCount is one day of the votes-over-time series.
type DayCount struct {
	Date  string `json:"date"`
	Votes int64  `json:"votes"`
}

// Analytics is the aggregated breakdown of a poll's real vote history,
// available to the owning leader and to admins.
type Analytics struct {
	PollID         string           `json:"poll_id"`
	Question       string           `json:"question"`
	TotalVotes     int64            `json:"total_votes"`
	VotesByHour    map[int]int64    `json:"votes_by_hour"`
	PeakHour       HourCount        `json:"peak_hour"`
	VotesOverTime  []DayCount       `json:"votes_over_time"`
	AvgVotesPerDay float64          `json:"average_votes_per_day"`
	ViewCount      int64            `json:"view_count"`
	ConversionRate float64          `json:"conversion_rate"`
	Votes          map[string]int64 `json:"votes"`
}

// AggregateVoteHistory buckets the vote history by hour of day and finds the
// peak hour. All 24 buckets are always present, zeroed when empty. Ties on
// the peak resolve to the lowest hour.
func AggregateVoteHistory(history []model.VoteEvent) (votesByHour map[int]int64, peakHour HourCount, totalVotes int64) {
	votesByHour = make(map[int]int64, 24)
	for h := 0; h < 24; h++ {
		votesByHour[h] = 0
	}

	for _, entry := range history {
		if entry.Hour < 0 || entry.Hour > 23 {
			continue
		}
		votesByHour[entry.Hour]++
		totalVotes++
	}

	peakHour = HourCount{Hour: 0, Count: 0}
	for h := 0; h < 24; h++ {
		if votesByHour[h] > peakHour.Count {
			peakHour = HourCount{Hour: h, Count: votesByHour[h]}
		}
	}

	return votesByHour, peakHour, totalVotes
}

// ConversionRate is votes per view as a percentage, rounded to two decimal
// places. Defined as 0 when there are no views.
func ConversionRate(totalVotes, viewCount int64) float64 {
	if viewCount <= 0 {
		return 0
	}
	rate := float64(totalVotes) / float64(viewCount) * 100
	return math.Round(rate*100) / 100
}

// BuildAnalytics assembles the full analytics view for a poll from its vote
// history. The votes-over-time series covers the last 7 days up to now.
func BuildAnalytics(poll *model.Poll, history []model.VoteEvent, now time.Time) *Analytics {
	votesByHour, peakHour, totalVotes := AggregateVoteHistory(history)

	overTime := make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		var count int64
		for _, entry := range history {
			if entry.VotedAt.Format("2006-01-02") == day {
				count++
			}
		}
		overTime = append(overTime, DayCount{Date: day, Votes: count})
	}

	return &Analytics{
		PollID:         poll.ID,
		Question:       poll.Question,
		TotalVotes:     totalVotes,
		VotesByHour:    votesByHour,
		PeakHour:       peakHour,
		VotesOverTime:  overTime,
		AvgVotesPerDay: math.Round(float64(totalVotes)/7*100) / 100,
		ViewCount:      poll.ViewCount,
		ConversionRate: ConversionRate(totalVotes, poll.ViewCount),
		Votes:          poll.RealVotes(),
	}
}
