package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var (
	_ adapter.Notifier           = (*Platform)(nil)
	_ adapter.InviteIssuer       = (*Platform)(nil)
	_ adapter.MembershipEnforcer = (*Platform)(nil)
)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Platform wraps the Bot API calls the domain needs: messages, invite links and
// membership revocation. It is built before the update loop so use cases can
// depend on it.
type Platform struct {
	api      botAPI
	username string
	log      *zerolog.Logger
}

func NewPlatform(token string, logger *zerolog.Logger) (*Platform, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	p := newPlatform(bot, logger)
	p.username = bot.Self.UserName
	return p, nil
}

func newPlatform(api botAPI, logger *zerolog.Logger) *Platform {
	l := logger.With().Str("component", "TelegramPlatform").Logger()
	return &Platform{api: api, log: &l}
}

// Username is the bot's @handle without the at sign.
func (p *Platform) Username() string { return p.username }

func (p *Platform) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var c tgbotapi.Chattable
	if len(params.Photo) > 0 {
		photo := tgbotapi.NewPhoto(params.ChatID, tgbotapi.FileBytes{Name: "payment.png", Bytes: params.Photo})
		photo.Caption = params.Text
		if params.Markdown {
			photo.ParseMode = tgbotapi.ModeMarkdown
		}
		if len(params.Buttons) > 0 {
			photo.ReplyMarkup = inlineKeyboard(params.Buttons)
		}
		c = photo
	} else {
		msg := tgbotapi.NewMessage(params.ChatID, params.Text)
		msg.DisableWebPagePreview = true
		if params.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if len(params.Buttons) > 0 {
			msg.ReplyMarkup = inlineKeyboard(params.Buttons)
		}
		c = msg
	}

	if _, err := p.api.Send(c); err != nil {
		metrics.IncPlatformError("send")
		return fmt.Errorf("send to %d: %w", params.ChatID, err)
	}
	return nil
}

// inlineKeyboard converts button rows. A button without URL or data sends its label.
func inlineKeyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

// CreateInvite issues a link for exactly one join that stops working at expiresAt.
func (p *Platform) CreateInvite(ctx context.Context, channelID int64, expiresAt time.Time) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: channelID},
		ExpireDate:  int(expiresAt.Unix()),
		MemberLimit: 1,
	}
	resp, err := p.api.Request(cfg)
	if err != nil {
		return "", domain.NewIssuerError(channelID, err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil || link.InviteLink == "" {
		return "", domain.NewIssuerError(channelID, fmt.Errorf("%w: %s", domain.ErrPlatformResponse, string(resp.Result)))
	}
	return link.InviteLink, nil
}

// Revoke bans and immediately unbans so the user is removed but may rejoin
// with a new invite later.
func (p *Platform) Revoke(ctx context.Context, channelID, userID int64) error {
	member := tgbotapi.ChatMemberConfig{ChatID: channelID, UserID: userID}

	if _, err := p.api.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		metrics.IncPlatformError("ban")
		return domain.NewEnforcerError("ban", channelID, userID, err)
	}
	if _, err := p.api.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}); err != nil {
		metrics.IncPlatformError("unban")
		// the user is out but stays banned until an admin lifts it
		return domain.NewEnforcerError("unban", channelID, userID, err)
	}
	return nil
}

// CloseKeyboard strips the inline buttons of a sent message.
func (p *Platform) CloseKeyboard(chatID int64, messageID int) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, err := p.api.Request(edit)
	return err
}

func (p *Platform) AnswerCallback(callbackID, text string) {
	if _, err := p.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		p.log.Debug().Err(err).Msg("failed to answer callback")
	}
}

// SetCommands publishes the command menu. Administrators get their own scope.
func (p *Platform) SetCommands(adminIDs []int64) error {
	userCmds := []tgbotapi.BotCommand{
		{Command: "status", Description: "Your subscriptions"},
		{Command: "help", Description: "How it works"},
	}
	if _, err := p.api.Request(tgbotapi.NewSetMyCommands(userCmds...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}

	adminCmds := append([]tgbotapi.BotCommand{
		{Command: "addchannel", Description: "Register a channel"},
		{Command: "channels", Description: "Your channels and links"},
		{Command: "setplans", Description: "Replace plans: <channel_id> <minutes:price,...>"},
		{Command: "sweep", Description: "Revoke expired subscriptions now"},
		{Command: "cancel", Description: "Abort the current dialog"},
	}, userCmds...)
	for _, id := range adminIDs {
		scope := tgbotapi.NewBotCommandScopeChat(id)
		if _, err := p.api.Request(tgbotapi.NewSetMyCommandsWithScope(scope, adminCmds...)); err != nil {
			return fmt.Errorf("set admin commands for %d: %w", id, err)
		}
	}
	return nil
}
