package telegram

import (
	"context"
	"strconv"
	"strings"

	"telegram-channel-subscription/internal/infra/metrics"
	"telegram-channel-subscription/internal/usecase"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  r.handleStartCommand,
		"status": r.handleStatusCommand,
		"help":   r.handleHelpCommand,

		"addchannel": r.adminOnly(r.handleAddChannelCommand),
		"channels":   r.adminOnly(r.handleChannelsCommand),
		"setplans":   r.adminOnly(r.handleSetPlansCommand),
		"cancel":     r.adminOnly(r.handleCancelCommand),
		"sweep":      r.adminOnly(r.handleSweepCommand),
	}
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if !r.isAdmin(message.From.ID) {
			metrics.IncAdminCommand("/"+message.Command(), "unauthorized")
			return r.send(ctx, message.Chat.ID, r.facade.Unauthorized())
		}
		metrics.IncAdminCommand("/"+message.Command(), "authorized")
		return next(ctx, message)
	}
}

// handleStartCommand handles /start and deep links of the form /start <channel_id>.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := r.facade.HandleStart(ctx, message.From.ID, message.CommandArguments(), r.isAdmin(message.From.ID))
	if err != nil {
		return r.fail(ctx, message.Chat.ID, err)
	}
	return r.send(ctx, message.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := r.facade.HandleStatus(ctx, message.From.ID)
	if err != nil {
		return r.fail(ctx, message.Chat.ID, err)
	}
	return r.send(ctx, message.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.send(ctx, message.Chat.ID, r.facade.HandleHelp(r.isAdmin(message.From.ID)))
}

func (r *RealTelegramBotAdapter) handleAddChannelCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := r.facade.HandleAddChannel(ctx, message.From.ID)
	if err != nil {
		return r.fail(ctx, message.Chat.ID, err)
	}
	return r.send(ctx, message.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleChannelsCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := r.facade.HandleChannels(ctx, message.From.ID)
	if err != nil {
		return r.fail(ctx, message.Chat.ID, err)
	}
	return r.send(ctx, message.Chat.ID, reply)
}

// handleSetPlansCommand: /setplans <channel_id> <minutes:price,...>
func (r *RealTelegramBotAdapter) handleSetPlansCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := r.facade.HandleSetPlans(ctx, message.From.ID, message.CommandArguments())
	if err != nil {
		return r.fail(ctx, message.Chat.ID, err)
	}
	return r.send(ctx, message.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := r.facade.HandleCancel(ctx, message.From.ID)
	if err != nil {
		return r.fail(ctx, message.Chat.ID, err)
	}
	return r.send(ctx, message.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleSweepCommand(ctx context.Context, message *tgbotapi.Message) error {
	reply, err := r.facade.HandleSweep(ctx)
	if err != nil {
		return r.fail(ctx, message.Chat.ID, err)
	}
	return r.send(ctx, message.Chat.ID, reply)
}

// adminReply extracts what onboarding needs from a message. Only posts
// forwarded from a channel carry a chat id.
func adminReply(msg *tgbotapi.Message) usecase.AdminReply {
	reply := usecase.AdminReply{Text: strings.TrimSpace(msg.Text)}
	if fc := msg.ForwardFromChat; fc != nil && fc.IsChannel() {
		reply.ForwardedChatID = fc.ID
		reply.ForwardedChatTitle = fc.Title
	}
	return reply
}

// parseChannelID accepts the numeric id used in deep links and callbacks.
func parseChannelID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
