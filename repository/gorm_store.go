package repository

import (
	"context"
	"errors"
	"time"

	"votemaster-backend/model"

	"gorm.io/gorm"
)

// GormStore implements PollRepository, VoteLedger and LeaderRepository on a
// relational database through GORM. The gorm.DB must be opened with
// TranslateError enabled so unique-constraint conflicts surface as
// gorm.ErrDuplicatedKey regardless of driver.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store on top of an open database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// --- polls ---

func (s *GormStore) CreatePoll(ctx context.Context, poll *model.Poll) error {
	err := s.db.WithContext(ctx).Create(poll).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

func (s *GormStore) GetPollByID(ctx context.Context, id string) (*model.Poll, error) {
	return s.findPoll(ctx, "id = ?", id)
}

func (s *GormStore) GetPollByLink(ctx context.Context, link string) (*model.Poll, error) {
	return s.findPoll(ctx, "unique_link = ?", link)
}

func (s *GormStore) findPoll(ctx context.Context, query string, arg interface{}) (*model.Poll, error) {
	var poll model.Poll
	err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(query, arg).
		First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (s *GormStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Poll{}).
		Where("unique_link = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// PollLinks returns every unique link in the store, used to warm the bloom
// filter at startup.
func (s *GormStore) PollLinks(ctx context.Context) ([]string, error) {
	var links []string
	err := s.db.WithContext(ctx).Model(&model.Poll{}).
		Pluck("unique_link", &links).Error
	return links, err
}

func (s *GormStore) ListPollsByLeader(ctx context.Context, leaderID string) ([]model.Poll, error) {
	var polls []model.Poll
	err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("leader_id = ?", leaderID).
		Order("created_at DESC").
		Find(&polls).Error
	return polls, err
}

func (s *GormStore) UpdatePoll(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	var exists int64
	if err := s.db.WithContext(ctx).Model(&model.Poll{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	err := s.db.WithContext(ctx).Model(&model.Poll{}).Where("id = ?", id).Updates(fields).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

func (s *GormStore) UpdateDisplayedResults(ctx context.Context, id string, displayed []float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, value := range displayed {
			res := tx.Model(&model.PollOption{}).
				Where("poll_id = ? AND position = ?", id, i+1).
				UpdateColumn("displayed", value)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

func (s *GormStore) DeletePoll(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", id).Delete(&model.PollOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", id).Delete(&model.VoteRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", id).Delete(&model.VoteEvent{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Poll{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) DeletePollsByLeader(ctx context.Context, leaderID string) error {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.Poll{}).
		Where("leader_id = ?", leaderID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.DeletePoll(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// IncrementViewCount bumps the view counter with a SQL-level increment so
// concurrent page loads never lose updates.
func (s *GormStore) IncrementViewCount(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&model.Poll{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// InvalidatePoll is a no-op here; nothing is cached at this layer.
func (s *GormStore) InvalidatePoll(ctx context.Context, poll *model.Poll) {}

// --- vote ledger ---

func (s *GormStore) HasVoted(ctx context.Context, pollID, fingerprint string) (*model.VoteRecord, error) {
	var rec model.VoteRecord
	err := s.db.WithContext(ctx).
		Where("poll_id = ? AND fingerprint = ?", pollID, fingerprint).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CommitVote writes a ballot in a single transaction: the dedup entry for
// (poll, fingerprint), the tally increment and the history append. The
// composite primary key makes the insert a first-writer-wins conditional
// write; the loser gets ErrDuplicateVote. Any later failure rolls the dedup
// entry back too, so the voter can retry instead of being locked out with
// an uncounted ballot. The tally update is a SQL-level atomic increment,
// never read-modify-write.
func (s *GormStore) CommitVote(ctx context.Context, pollID, fingerprint, optionKey string, at time.Time) error {
	index, ok := model.ParseOptionKey(optionKey)
	if !ok {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := model.VoteRecord{
			PollID:      pollID,
			Fingerprint: fingerprint,
			OptionKey:   optionKey,
			VotedAt:     at,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateVote
			}
			return err
		}

		res := tx.Model(&model.PollOption{}).
			Where("poll_id = ? AND position = ?", pollID, index+1).
			UpdateColumn("votes", gorm.Expr("votes + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return tx.Create(&model.VoteEvent{
			PollID:    pollID,
			OptionKey: optionKey,
			Hour:      at.Hour(),
			VotedAt:   at,
		}).Error
	})
}

func (s *GormStore) VoteHistory(ctx context.Context, pollID string) ([]model.VoteEvent, error) {
	var events []model.VoteEvent
	err := s.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("voted_at ASC").
		Find(&events).Error
	return events, err
}

// --- leaders ---

func (s *GormStore) CreateLeader(ctx context.Context, leader *model.Leader) error {
	err := s.db.WithContext(ctx).Create(leader).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

func (s *GormStore) GetLeaderByID(ctx context.Context, id string) (*model.Leader, error) {
	return s.findLeader(ctx, "id = ?", id)
}

func (s *GormStore) GetLeaderByMobile(ctx context.Context, mobile string) (*model.Leader, error) {
	return s.findLeader(ctx, "mobile = ?", mobile)
}

func (s *GormStore) findLeader(ctx context.Context, query string, arg interface{}) (*model.Leader, error) {
	var leader model.Leader
	err := s.db.WithContext(ctx).Where(query, arg).First(&leader).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &leader, nil
}

func (s *GormStore) ListLeaders(ctx context.Context) ([]model.Leader, error) {
	var leaders []model.Leader
	err := s.db.WithContext(ctx).
		Where("role = ?", model.RoleLeader).
		Order("created_at ASC").
		Find(&leaders).Error
	return leaders, err
}

func (s *GormStore) UpdateLeader(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	var exists int64
	if err := s.db.WithContext(ctx).Model(&model.Leader{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	err := s.db.WithContext(ctx).Model(&model.Leader{}).Where("id = ?", id).Updates(fields).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

func (s *GormStore) DeleteLeader(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Leader{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
