package repository

import (
	"context"
	"fmt"

	"votemaster-backend/cache"
	"votemaster-backend/model"
)

// CachedPollRepository layers the Redis cache over another PollRepository.
// Reads are read-through, writes invalidate with a delayed double delete.
// Only polls are cached; ledger and leader traffic always hits the database.
type CachedPollRepository struct {
	inner PollRepository
	cache *cache.PollCache
	bloom *cache.BloomFilter
}

// NewCachedPollRepository wraps inner. The bloom filter may be nil; it only
// guards the by-link read path against probing of links that never existed.
func NewCachedPollRepository(inner PollRepository, pollCache *cache.PollCache, bloom *cache.BloomFilter) *CachedPollRepository {
	return &CachedPollRepository{inner: inner, cache: pollCache, bloom: bloom}
}

func pollIDKey(id string) string     { return fmt.Sprintf("poll:id:%s", id) }
func pollLinkKey(link string) string { return fmt.Sprintf("poll:link:%s", link) }

func (r *CachedPollRepository) CreatePoll(ctx context.Context, poll *model.Poll) error {
	if err := r.inner.CreatePoll(ctx, poll); err != nil {
		return err
	}
	if poll.UniqueLink != "" {
		_ = r.bloom.Add(ctx, poll.UniqueLink)
	}
	return nil
}

func (r *CachedPollRepository) GetPollByID(ctx context.Context, id string) (*model.Poll, error) {
	var cached model.Poll
	if err := r.cache.GetJSON(ctx, pollIDKey(id), &cached); err == nil {
		return &cached, nil
	}

	poll, err := r.inner.GetPollByID(ctx, id)
	if err != nil || poll == nil {
		return poll, err
	}
	r.storePoll(ctx, poll)
	return poll, nil
}

func (r *CachedPollRepository) GetPollByLink(ctx context.Context, link string) (*model.Poll, error) {
	var cached model.Poll
	if err := r.cache.GetJSON(ctx, pollLinkKey(link), &cached); err == nil {
		return &cached, nil
	}

	if r.bloom != nil && !r.bloom.Contains(ctx, link) {
		return nil, nil
	}

	poll, err := r.inner.GetPollByLink(ctx, link)
	if err != nil || poll == nil {
		return poll, err
	}
	r.storePoll(ctx, poll)
	return poll, nil
}

func (r *CachedPollRepository) storePoll(ctx context.Context, poll *model.Poll) {
	r.cache.SetJSON(ctx, pollIDKey(poll.ID), poll)
	if poll.UniqueLink != "" {
		r.cache.SetJSON(ctx, pollLinkKey(poll.UniqueLink), poll)
	}
}

func (r *CachedPollRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.inner.SlugExists(ctx, slug)
}

func (r *CachedPollRepository) ListPollsByLeader(ctx context.Context, leaderID string) ([]model.Poll, error) {
	return r.inner.ListPollsByLeader(ctx, leaderID)
}

func (r *CachedPollRepository) UpdatePoll(ctx context.Context, id string, fields map[string]interface{}) error {
	r.invalidateByID(ctx, id)
	if err := r.inner.UpdatePoll(ctx, id, fields); err != nil {
		return err
	}
	if link, ok := fields["unique_link"].(string); ok && link != "" {
		_ = r.bloom.Add(ctx, link)
	}
	return nil
}

func (r *CachedPollRepository) UpdateDisplayedResults(ctx context.Context, id string, displayed []float64) error {
	r.invalidateByID(ctx, id)
	return r.inner.UpdateDisplayedResults(ctx, id, displayed)
}

func (r *CachedPollRepository) DeletePoll(ctx context.Context, id string) error {
	r.invalidateByID(ctx, id)
	return r.inner.DeletePoll(ctx, id)
}

func (r *CachedPollRepository) DeletePollsByLeader(ctx context.Context, leaderID string) error {
	polls, err := r.inner.ListPollsByLeader(ctx, leaderID)
	if err == nil {
		for i := range polls {
			r.InvalidatePoll(ctx, &polls[i])
		}
	}
	return r.inner.DeletePollsByLeader(ctx, leaderID)
}

// IncrementViewCount writes through without invalidating. The view counter
// only feeds analytics, which always reads the database; a slightly stale
// cached counter on the public page is acceptable.
func (r *CachedPollRepository) IncrementViewCount(ctx context.Context, id string) error {
	return r.inner.IncrementViewCount(ctx, id)
}

// InvalidatePoll drops both cache entries for the poll with the delayed
// double delete, so a reader racing the vote write cannot re-pin the old
// tallies for a full TTL.
func (r *CachedPollRepository) InvalidatePoll(ctx context.Context, poll *model.Poll) {
	if poll == nil {
		return
	}
	keys := []string{pollIDKey(poll.ID)}
	if poll.UniqueLink != "" {
		keys = append(keys, pollLinkKey(poll.UniqueLink))
	}
	r.cache.Invalidate(keys...)
}

func (r *CachedPollRepository) invalidateByID(ctx context.Context, id string) {
	poll, err := r.inner.GetPollByID(ctx, id)
	if err != nil || poll == nil {
		r.cache.Invalidate(pollIDKey(id))
		return
	}
	r.InvalidatePoll(ctx, poll)
}
