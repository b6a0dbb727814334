package repository

import (
	"context"

	"telegram-channel-subscription/internal/domain/model"
)

// ChannelRepository is the port for channels and their plan catalogs.
type ChannelRepository interface {
	// Save inserts or updates a channel's name and owner keyed by ID.
	// Existing plans are left untouched.
	Save(ctx context.Context, ch *model.Channel) error
	// ReplacePlans swaps the whole catalog in one atomic write.
	// Returns domain.ErrChannelNotFound if the channel is not registered.
	ReplacePlans(ctx context.Context, channelID int64, plans model.Catalog) error
	FindByID(ctx context.Context, id int64) (*model.Channel, error)
	ListByAdmin(ctx context.Context, adminID int64) ([]*model.Channel, error)
}
