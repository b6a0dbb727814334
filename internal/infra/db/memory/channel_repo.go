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

var _ repository.ChannelRepository = (*ChannelRepo)(nil)

// ChannelRepo keeps channels in process memory. Used by the memory storage
// driver and by tests.
type ChannelRepo struct {
	mu       sync.RWMutex
	channels map[int64]model.Channel
}

func NewChannelRepo() *ChannelRepo {
	return &ChannelRepo{channels: make(map[int64]model.Channel)}
}

// Save inserts the channel or updates its name and administrator. Plans are
// written on insert only; later changes go through ReplacePlans.
func (r *ChannelRepo) Save(_ context.Context, ch *model.Channel) error {
	if ch == nil || ch.ID == 0 {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := cloneChannel(*ch)
	if prev, ok := r.channels[ch.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
		stored.Plans = prev.Plans
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.channels[ch.ID] = stored
	return nil
}

func (r *ChannelRepo) ReplacePlans(_ context.Context, channelID int64, plans model.Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return domain.ErrChannelNotFound
	}
	ch.Plans = append(model.Catalog(nil), plans...)
	ch.UpdatedAt = time.Now().UTC()
	r.channels[channelID] = ch
	return nil
}

func (r *ChannelRepo) FindByID(_ context.Context, id int64) (*model.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[id]
	if !ok {
		return nil, domain.ErrChannelNotFound
	}
	out := cloneChannel(ch)
	return &out, nil
}

func (r *ChannelRepo) ListByAdmin(_ context.Context, adminID int64) ([]*model.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Channel
	for _, ch := range r.channels {
		if ch.AdminID != adminID {
			continue
		}
		c := cloneChannel(ch)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneChannel(ch model.Channel) model.Channel {
	ch.Plans = append(model.Catalog(nil), ch.Plans...)
	return ch
}
