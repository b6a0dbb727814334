package telegram

import (
	"context"
	"errors"
	"time"

	"telegram-channel-subscription/internal/application"
	"telegram-channel-subscription/internal/config"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/infra/metrics"
	red "telegram-channel-subscription/internal/infra/redis"
	"telegram-channel-subscription/internal/infra/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	commandLimit  = 20
	callbackLimit = 30
	limitWindow   = time.Minute
)

// RateLimiter is satisfied by the Redis fixed-window limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RealTelegramBotAdapter polls updates and delegates them to BotFacade on a worker pool.
type RealTelegramBotAdapter struct {
	platform    *Platform
	facade      *application.BotFacade
	rateLimiter RateLimiter
	pool        *worker.Pool
	adminIDs    []int64
	adminIDsMap map[int64]struct{}
	log         *zerolog.Logger
}

func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	platform *Platform,
	facade *application.BotFacade,
	rateLimiter RateLimiter,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if platform == nil {
		return nil, errors.New("telegram platform is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}

	adminMap := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}
	botLog := logger.With().Str("component", "TelegramBot").Logger()

	return &RealTelegramBotAdapter{
		platform:    platform,
		facade:      facade,
		rateLimiter: rateLimiter,
		pool:        worker.NewPool(cfg.Workers, logger),
		adminIDs:    cfg.AdminIDs,
		adminIDsMap: adminMap,
		log:         &botLog,
	}, nil
}

// StartPolling runs until ctx is cancelled. Updates are handled concurrently,
// at most cfg.Workers at a time.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if err := r.platform.SetCommands(r.adminIDs); err != nil {
		r.log.Warn().Err(err).Msg("failed to publish command menu")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := r.platform.api.GetUpdatesChan(u)

	r.pool.Start(ctx)
	defer r.pool.Stop()
	r.log.Info().Str("bot", r.platform.Username()).Msg("polling started")

	for {
		select {
		case <-ctx.Done():
			r.platform.api.StopReceivingUpdates()
			r.log.Info().Msg("polling stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			err := r.pool.Submit(ctx, func(ctx context.Context) error {
				return r.handleUpdate(ctx, up)
			})
			if err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
			}
		}
	}
}

func (r *RealTelegramBotAdapter) isAdmin(id int64) bool {
	_, ok := r.adminIDsMap[id]
	return ok
}

func (r *RealTelegramBotAdapter) allow(ctx context.Context, userID int64, key string, limit int) bool {
	if r.rateLimiter == nil {
		return true
	}
	ok, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(userID, key), limit, limitWindow)
	if err != nil {
		// fail open, Redis being down must not silence the bot
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		metrics.IncRateLimitTriggered()
	}
	return ok
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, logging.NewTraceID())

	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}
	ctx = logging.WithTgID(ctx, msg.From.ID)

	command := "message"
	if msg.IsCommand() {
		command = "/" + msg.Command()
	}
	metrics.IncTelegramCommand(command)
	if !r.allow(ctx, msg.From.ID, command, commandLimit) {
		return r.send(ctx, msg.Chat.ID, &application.Reply{Text: r.facade.RateLimited()})
	}

	if msg.IsCommand() {
		handler, ok := r.commandRoutes()[msg.Command()]
		if !ok {
			handler = r.handleHelpCommand
		}
		return handler(ctx, msg)
	}
	return r.handleText(ctx, msg)
}

// handleText feeds administrator messages to the onboarding dialog.
func (r *RealTelegramBotAdapter) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	if !r.isAdmin(msg.From.ID) {
		return r.send(ctx, msg.Chat.ID, r.facade.HandleHelp(false))
	}
	reply, err := r.facade.HandleAdminText(ctx, msg.From.ID, adminReply(msg))
	if err != nil {
		return r.fail(ctx, msg.Chat.ID, err)
	}
	if reply == nil {
		reply = r.facade.HandleHelp(true)
	}
	return r.send(ctx, msg.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) send(ctx context.Context, chatID int64, reply *application.Reply) error {
	if reply == nil {
		return nil
	}
	return r.platform.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:  chatID,
		Text:    reply.Text,
		Buttons: reply.Buttons,
		Photo:   reply.Photo,
	})
}

// fail logs err and tells the user something went wrong.
func (r *RealTelegramBotAdapter) fail(ctx context.Context, chatID int64, err error) error {
	logging.With(ctx, r.log).Error().Err(err).Msg("update handling failed")
	if sendErr := r.send(ctx, chatID, r.facade.ErrorReply()); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}
