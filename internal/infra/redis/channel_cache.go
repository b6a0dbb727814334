package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"
	"telegram-channel-subscription/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ repository.ChannelRepository = (*channelRepoCacheDecorator)(nil)

// channelRepoCacheDecorator caches channel lookups, which every deep link,
// plan button and sweep notice performs.
type channelRepoCacheDecorator struct {
	inner repository.ChannelRepository
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewChannelRepoCacheDecorator(inner repository.ChannelRepository, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ChannelRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &channelRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func channelKey(id int64) string { return fmt.Sprintf("channel:%d", id) }

func (d *channelRepoCacheDecorator) FindByID(ctx context.Context, id int64) (*model.Channel, error) {
	key := channelKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var ch model.Channel
		if json.Unmarshal([]byte(val), &ch) == nil {
			metrics.IncChannelCache("hit")
			return &ch, nil
		}
	} else if !IsNil(err) {
		metrics.IncChannelCache("error")
		d.log.Warn().Err(err).Str("key", key).Msg("channel cache read failed")
	}

	metrics.IncChannelCache("miss")
	ch, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(ch); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("channel cache write failed")
		}
	}
	return ch, nil
}

// Writes go to the store first, then drop the cached copy.

func (d *channelRepoCacheDecorator) Save(ctx context.Context, ch *model.Channel) error {
	if err := d.inner.Save(ctx, ch); err != nil {
		return err
	}
	d.invalidate(ctx, ch.ID)
	return nil
}

func (d *channelRepoCacheDecorator) ReplacePlans(ctx context.Context, channelID int64, plans model.Catalog) error {
	if err := d.inner.ReplacePlans(ctx, channelID, plans); err != nil {
		return err
	}
	d.invalidate(ctx, channelID)
	return nil
}

func (d *channelRepoCacheDecorator) ListByAdmin(ctx context.Context, adminID int64) ([]*model.Channel, error) {
	return d.inner.ListByAdmin(ctx, adminID)
}

func (d *channelRepoCacheDecorator) invalidate(ctx context.Context, id int64) {
	metrics.IncChannelCache("invalidate")
	if err := d.cache.Del(ctx, channelKey(id)); err != nil {
		metrics.IncChannelCache("error")
		d.log.Warn().Err(err).Int64("channel_id", id).Msg("channel cache invalidation failed")
	}
}
