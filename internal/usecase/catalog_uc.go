package usecase

import (
	"context"
	"errors"
	"fmt"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"
	"telegram-channel-subscription/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

// CatalogUseCase manages channels and their duration -> price catalogs.
type CatalogUseCase interface {
	RegisterChannel(ctx context.Context, channelID int64, name string, adminID int64) (*model.Channel, error)
	SetPlans(ctx context.Context, channelID int64, plans map[int]string) (model.Catalog, error)
	SetPlansFromText(ctx context.Context, channelID int64, text string) (model.Catalog, error)
	GetPlan(ctx context.Context, channelID int64, minutes int) (model.Plan, error)
	ListPlans(ctx context.Context, channelID int64) (model.Catalog, error)
	GetChannel(ctx context.Context, channelID int64) (*model.Channel, error)
	ListChannels(ctx context.Context, adminID int64) ([]*model.Channel, error)
}

type catalogUC struct {
	channels repository.ChannelRepository
	log      *zerolog.Logger
}

func NewCatalogUseCase(channels repository.ChannelRepository, logger *zerolog.Logger) *catalogUC {
	return &catalogUC{channels: channels, log: logger}
}

// RegisterChannel creates the channel or updates its name and administrator.
// Plans already defined for the channel are kept.
func (c *catalogUC) RegisterChannel(ctx context.Context, channelID int64, name string, adminID int64) (*model.Channel, error) {
	defer logging.TraceDuration(c.log, "CatalogUC.RegisterChannel")()

	ch, err := model.NewChannel(channelID, name, adminID)
	if err != nil {
		return nil, err
	}

	existing, err := c.channels.FindByID(ctx, channelID)
	switch {
	case err == nil:
		ch.Plans = existing.Plans
		ch.CreatedAt = existing.CreatedAt
		if existing.AdminID != adminID {
			c.log.Warn().
				Int64("channel_id", channelID).
				Int64("old_admin", existing.AdminID).
				Int64("new_admin", adminID).
				Msg("channel administrator replaced on re-registration")
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	if err := c.channels.Save(ctx, ch); err != nil {
		c.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to save channel")
		return nil, err
	}
	return ch, nil
}

// SetPlans replaces the whole catalog. On error the previous catalog is untouched.
func (c *catalogUC) SetPlans(ctx context.Context, channelID int64, plans map[int]string) (model.Catalog, error) {
	defer logging.TraceDuration(c.log, "CatalogUC.SetPlans")()

	catalog, err := model.NewCatalog(plans)
	if err != nil {
		return nil, err
	}
	if err := c.channels.ReplacePlans(ctx, channelID, catalog); err != nil {
		return nil, err
	}
	c.log.Info().Int64("channel_id", channelID).Int("plans", len(catalog)).Msg("catalog replaced")
	return catalog, nil
}

// SetPlansFromText parses "minutes:price" entries separated by commas or newlines.
func (c *catalogUC) SetPlansFromText(ctx context.Context, channelID int64, text string) (model.Catalog, error) {
	plans, err := model.ParsePlanList(text)
	if err != nil {
		return nil, err
	}
	return c.SetPlans(ctx, channelID, plans)
}

func (c *catalogUC) GetPlan(ctx context.Context, channelID int64, minutes int) (model.Plan, error) {
	ch, err := c.channels.FindByID(ctx, channelID)
	if err != nil {
		return model.Plan{}, err
	}
	return ch.Plan(minutes)
}

func (c *catalogUC) ListPlans(ctx context.Context, channelID int64) (model.Catalog, error) {
	ch, err := c.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return ch.Plans, nil
}

func (c *catalogUC) GetChannel(ctx context.Context, channelID int64) (*model.Channel, error) {
	return c.channels.FindByID(ctx, channelID)
}

func (c *catalogUC) ListChannels(ctx context.Context, adminID int64) ([]*model.Channel, error) {
	list, err := c.channels.ListByAdmin(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return list, nil
}
