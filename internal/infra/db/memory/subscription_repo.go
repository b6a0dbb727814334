package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type subKey struct {
	user    int64
	channel int64
}

// SubscriptionRepo is the in-memory subscription ledger, one row per (user, channel).
type SubscriptionRepo struct {
	mu   sync.RWMutex
	rows map[subKey]model.Subscription
}

func NewSubscriptionRepo() *SubscriptionRepo {
	return &SubscriptionRepo{rows: make(map[subKey]model.Subscription)}
}

func (r *SubscriptionRepo) Upsert(_ context.Context, s model.Subscription) error {
	if s.UserID <= 0 || s.ChannelID == 0 {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ExpiresAt = s.ExpiresAt.UTC()
	r.rows[subKey{s.UserID, s.ChannelID}] = s
	return nil
}

func (r *SubscriptionRepo) Find(_ context.Context, userID, channelID int64) (*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rows[subKey{userID, channelID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *SubscriptionRepo) ListByUser(_ context.Context, userID int64) ([]model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Subscription
	for k, s := range r.rows {
		if k.user == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (r *SubscriptionRepo) ListExpired(_ context.Context, now time.Time, after *repository.ExpiredCursor, limit int) ([]model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Subscription
	for _, s := range r.rows {
		if s.Expired(now) && after.Precedes(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return repository.ExpiredLess(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes the row only when its expiry still equals expiresAt, so a renewal
// written after the sweeper read the row survives.
func (r *SubscriptionRepo) Delete(_ context.Context, userID, channelID int64, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := subKey{userID, channelID}
	s, ok := r.rows[k]
	if !ok || !s.ExpiresAt.Equal(expiresAt) {
		return false, nil
	}
	delete(r.rows, k)
	return true, nil
}

func (r *SubscriptionRepo) CountActive(_ context.Context, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.rows {
		if !s.Expired(now) {
			n++
		}
	}
	return n, nil
}
