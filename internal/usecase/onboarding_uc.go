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
var _ OnboardingUseCase = (*onboardingUC)(nil)

// OnboardingUseCase walks an administrator through adding a channel and its plans.
// The bot remembers one pending prompt per administrator and interprets their next
// message according to it.
type OnboardingUseCase interface {
	BeginAddChannel(ctx context.Context, adminID int64) error
	BeginEditPlans(ctx context.Context, adminID, channelID int64) (*model.Channel, error)
	HandleReply(ctx context.Context, adminID int64, reply AdminReply) (*OnboardingResult, error)
	Pending(ctx context.Context, adminID int64) (*model.PendingPrompt, error)
	Cancel(ctx context.Context, adminID int64) (bool, error)
	DeepLink(channelID int64) string
}

// AdminReply is the part of an administrator message onboarding cares about.
type AdminReply struct {
	Text string
	// Set when the message was forwarded from a channel.
	ForwardedChatID    int64
	ForwardedChatTitle string
}

type OnboardingStep int

const (
	StepChannelRegistered OnboardingStep = iota + 1
	StepPlansSaved
)

type OnboardingResult struct {
	Step     OnboardingStep
	Channel  *model.Channel
	Plans    model.Catalog
	DeepLink string
}

// ErrNotForwarded is returned when a channel post was expected but plain text arrived.
var ErrNotForwarded = fmt.Errorf("%w: message is not forwarded from a channel", domain.ErrInvalidArgument)

type onboardingUC struct {
	catalog     CatalogUseCase
	prompts     repository.PromptRepository
	botUsername string
	now         Clock
	log         *zerolog.Logger
}

func NewOnboardingUseCase(catalog CatalogUseCase, prompts repository.PromptRepository, botUsername string, clock Clock, logger *zerolog.Logger) *onboardingUC {
	if clock == nil {
		clock = systemClock
	}
	return &onboardingUC{catalog: catalog, prompts: prompts, botUsername: botUsername, now: clock, log: logger}
}

func (o *onboardingUC) BeginAddChannel(ctx context.Context, adminID int64) error {
	return o.prompts.SetPrompt(ctx, adminID, &model.PendingPrompt{
		Kind:      model.PromptAwaitingForward,
		CreatedAt: o.now(),
	})
}

// BeginEditPlans asks for a new catalog for a channel the administrator owns.
func (o *onboardingUC) BeginEditPlans(ctx context.Context, adminID, channelID int64) (*model.Channel, error) {
	ch, err := o.catalog.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.AdminID != adminID {
		return nil, domain.ErrUnauthorized
	}
	err = o.prompts.SetPrompt(ctx, adminID, &model.PendingPrompt{
		Kind:        model.PromptAwaitingPlans,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		CreatedAt:   o.now(),
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// HandleReply applies the administrator's message to the pending prompt.
// domain.ErrNoPendingPrompt means the message was not an answer to anything.
// On ErrNotForwarded or domain.ErrInvalidFormat the prompt is kept so the
// administrator can retry.
func (o *onboardingUC) HandleReply(ctx context.Context, adminID int64, reply AdminReply) (*OnboardingResult, error) {
	defer logging.TraceDuration(o.log, "OnboardingUC.HandleReply")()

	prompt, err := o.prompts.GetPrompt(ctx, adminID)
	if err != nil {
		return nil, err
	}

	switch prompt.Kind {
	case model.PromptAwaitingForward:
		if reply.ForwardedChatID == 0 {
			return nil, ErrNotForwarded
		}
		ch, err := o.catalog.RegisterChannel(ctx, reply.ForwardedChatID, reply.ForwardedChatTitle, adminID)
		if err != nil {
			return nil, err
		}
		next := &model.PendingPrompt{
			Kind:        model.PromptAwaitingPlans,
			ChannelID:   ch.ID,
			ChannelName: ch.Name,
			CreatedAt:   o.now(),
		}
		if err := o.prompts.SetPrompt(ctx, adminID, next); err != nil {
			return nil, err
		}
		o.log.Info().Int64("channel_id", ch.ID).Int64("admin_id", adminID).Msg("channel registered")
		return &OnboardingResult{Step: StepChannelRegistered, Channel: ch, Plans: ch.Plans}, nil

	case model.PromptAwaitingPlans:
		plans, err := o.catalog.SetPlansFromText(ctx, prompt.ChannelID, reply.Text)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// channel vanished underneath the prompt
				_ = o.prompts.ClearPrompt(ctx, adminID)
			}
			return nil, err
		}
		if err := o.prompts.ClearPrompt(ctx, adminID); err != nil {
			o.log.Warn().Err(err).Int64("admin_id", adminID).Msg("failed to clear prompt")
		}
		ch, err := o.catalog.GetChannel(ctx, prompt.ChannelID)
		if err != nil {
			return nil, err
		}
		return &OnboardingResult{
			Step:     StepPlansSaved,
			Channel:  ch,
			Plans:    plans,
			DeepLink: o.DeepLink(ch.ID),
		}, nil
	}

	_ = o.prompts.ClearPrompt(ctx, adminID)
	return nil, domain.ErrNoPendingPrompt
}

func (o *onboardingUC) Pending(ctx context.Context, adminID int64) (*model.PendingPrompt, error) {
	return o.prompts.GetPrompt(ctx, adminID)
}

// Cancel drops the pending prompt and reports whether there was one.
func (o *onboardingUC) Cancel(ctx context.Context, adminID int64) (bool, error) {
	if _, err := o.prompts.GetPrompt(ctx, adminID); err != nil {
		if errors.Is(err, domain.ErrNoPendingPrompt) {
			return false, nil
		}
		return false, err
	}
	return true, o.prompts.ClearPrompt(ctx, adminID)
}

// DeepLink is the link users open to browse a channel's plans.
func (o *onboardingUC) DeepLink(channelID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", o.botUsername, channelID)
}
