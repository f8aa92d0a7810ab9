package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InputType defines how a voter picks an option on the public poll page.
type InputType string

const (
	InputRadio  InputType = "radio"
	InputSlider InputType = "slider"
)

// ResultMode defines how the configured displayed results are interpreted.
type ResultMode string

const (
	ResultModePercentage ResultMode = "percentage"
	ResultModeCount      ResultMode = "count"
)

// PollStatus is the lifecycle state of a poll. The stored value is only a
// fallback default; the effective status is always recomputed from the
// schedule fields on read (service.ComputeStatus).
type PollStatus string

const (
	StatusScheduled PollStatus = "scheduled"
	StatusActive    PollStatus = "active"
	StatusExpired   PollStatus = "expired"
	StatusClosed    PollStatus = "closed"
)

// Poll represents a poll created by a leader. Options are stored normalized
// as PollOption rows ordered by Position; the legacy two-field shape from
// older clients never reaches this layer.
type Poll struct {
	ID         string       `gorm:"primaryKey;size:40" json:"id"`
	LeaderID   string       `gorm:"size:40;index;not null" json:"leader_id"`
	Question   string       `gorm:"not null" json:"question"`
	UniqueLink string       `gorm:"size:160;uniqueIndex;not null" json:"unique_link"`
	InputType  InputType    `gorm:"size:16;not null;default:radio" json:"input_type"`
	ResultMode ResultMode   `gorm:"size:16;not null;default:percentage" json:"result_mode"`
	Status     PollStatus   `gorm:"size:16;not null;default:active" json:"status"`
	StartDate  *time.Time   `json:"start_date,omitempty"`
	EndDate    *time.Time   `json:"end_date,omitempty"`
	ExpiryDate *time.Time   `json:"expiry_date,omitempty"`
	ViewCount  int64        `gorm:"not null;default:0" json:"view_count"`
	Options    []PollOption `gorm:"foreignKey:PollID;references:ID" json:"options"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// PollOption is one option row of a poll. Displayed holds the configured
// displayed result for this option (a percentage or a raw count depending on
// the poll's ResultMode); Votes is the authoritative real tally and is only
// ever changed by atomic increments.
type PollOption struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	PollID    string  `gorm:"size:40;not null;uniqueIndex:idx_poll_position" json:"-"`
	Position  int     `gorm:"not null;uniqueIndex:idx_poll_position" json:"position"`
	Text      string  `gorm:"not null" json:"text"`
	Displayed float64 `gorm:"not null;default:0" json:"displayed"`
	Votes     int64   `gorm:"not null;default:0" json:"votes"`
}

// Key returns the option key ("option1".."optionN") for this option.
func (o PollOption) Key() string {
	return OptionKey(o.Position - 1)
}

// OptionKey builds the option key for a zero-based option index.
func OptionKey(index int) string {
	return fmt.Sprintf("option%d", index+1)
}

// ParseOptionKey converts an option key back to its zero-based index.
// Returns false for anything that is not of the form option<N>, N >= 1.
func ParseOptionKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "option")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// OptionTexts returns the option labels in position order.
func (p *Poll) OptionTexts() []string {
	texts := make([]string, len(p.Options))
	for i, opt := range p.Options {
		texts[i] = opt.Text
	}
	return texts
}

// DisplayedResults returns the configured displayed results in position order.
func (p *Poll) DisplayedResults() []float64 {
	results := make([]float64, len(p.Options))
	for i, opt := range p.Options {
		results[i] = opt.Displayed
	}
	return results
}

// RealVotes returns the authoritative tally keyed by option key.
func (p *Poll) RealVotes() map[string]int64 {
	votes := make(map[string]int64, len(p.Options))
	for _, opt := range p.Options {
		votes[opt.Key()] = opt.Votes
	}
	return votes
}

// TotalVotes sums the real tallies across all options.
func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.Votes
	}
	return total
}

// WebSocketMessage is the envelope broadcast to live dashboard clients.
type WebSocketMessage struct {
	Type    string      `json:"type"`
	PollID  string      `json:"pollId"`
	Payload interface{} `json:"payload"`
}

// ToJSON serializes the message for the websocket hub.
func (m *WebSocketMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
