package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"votemaster-backend/model"
	"votemaster-backend/repository"
)

// LeaderService manages leader accounts and login. Account administration is
// admin-only at the transport layer; this service enforces data rules.
type LeaderService struct {
	leaders repository.LeaderRepository
	polls   repository.PollRepository
}

func NewLeaderService(leaders repository.LeaderRepository, polls repository.PollRepository) *LeaderService {
	return &LeaderService{leaders: leaders, polls: polls}
}

// CreateLeaderInput is the payload for provisioning a leader account.
type CreateLeaderInput struct {
	Name     string
	Mobile   string
	Password string
	Email    string
}

// CreateLeader provisions an account. The mobile number is the login
// identity and must be unique.
func (s *LeaderService) CreateLeader(ctx context.Context, input CreateLeaderInput) (*model.Leader, error) {
	name := strings.TrimSpace(input.Name)
	mobile := strings.TrimSpace(input.Mobile)

	if name == "" {
		return nil, validationErrorf("name is required")
	}
	if mobile == "" {
		return nil, validationErrorf("mobile number is required")
	}
	if len(input.Password) < 6 {
		return nil, validationErrorf("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	leader := &model.Leader{
		ID:           id,
		Name:         name,
		Slug:         LeaderSlug(name, id),
		Mobile:       mobile,
		PasswordHash: string(hash),
		Email:        strings.TrimSpace(input.Email),
		Role:         model.RoleLeader,
	}

	if err := s.leaders.CreateLeader(ctx, leader); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrMobileTaken
		}
		return nil, err
	}

	return leader, nil
}

// Authenticate checks the mobile/password pair. The error is the same for an
// unknown mobile and a wrong password; login must not reveal which part was
// wrong.
func (s *LeaderService) Authenticate(ctx context.Context, mobile, password string) (*model.Leader, error) {
	leader, err := s.leaders.GetLeaderByMobile(ctx, strings.TrimSpace(mobile))
	if err != nil {
		return nil, err
	}
	if leader == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(leader.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return leader, nil
}

// GetLeader returns one account.
func (s *LeaderService) GetLeader(ctx context.Context, id string) (*model.Leader, error) {
	leader, err := s.leaders.GetLeaderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if leader == nil {
		return nil, ErrLeaderNotFound
	}
	return leader, nil
}

// ListLeaders returns all non-admin accounts.
func (s *LeaderService) ListLeaders(ctx context.Context) ([]model.Leader, error) {
	return s.leaders.ListLeaders(ctx)
}

// UpdateLeaderInput carries the editable account fields. A nil field is left
// unchanged.
type UpdateLeaderInput struct {
	Name     *string
	Mobile   *string
	Password *string
	Email    *string
}

// UpdateLeader applies the edit. Changing the name regenerates the profile
// slug.
func (s *LeaderService) UpdateLeader(ctx context.Context, id string, input UpdateLeaderInput) (*model.Leader, error) {
	if _, err := s.GetLeader(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, validationErrorf("name is required")
		}
		fields["name"] = name
		fields["slug"] = LeaderSlug(name, id)
	}
	if input.Mobile != nil {
		mobile := strings.TrimSpace(*input.Mobile)
		if mobile == "" {
			return nil, validationErrorf("mobile number is required")
		}
		fields["mobile"] = mobile
	}
	if input.Password != nil {
		if len(*input.Password) < 6 {
			return nil, validationErrorf("password must be at least 6 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = string(hash)
	}
	if input.Email != nil {
		fields["email"] = strings.TrimSpace(*input.Email)
	}

	if err := s.leaders.UpdateLeader(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrMobileTaken
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLeaderNotFound
		}
		return nil, err
	}

	return s.GetLeader(ctx, id)
}

// DeleteLeader removes the account and everything it owns.
func (s *LeaderService) DeleteLeader(ctx context.Context, id string) error {
	if _, err := s.GetLeader(ctx, id); err != nil {
		return err
	}

	if err := s.polls.DeletePollsByLeader(ctx, id); err != nil {
		return err
	}

	err := s.leaders.DeleteLeader(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLeaderNotFound
	}
	return err
}
