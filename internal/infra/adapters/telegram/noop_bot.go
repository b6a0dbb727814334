package telegram

import (
	"context"
	"fmt"
	"time"

	"telegram-channel-subscription/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var (
	_ adapter.Notifier           = (*NoopBotAdapter)(nil)
	_ adapter.InviteIssuer       = (*NoopBotAdapter)(nil)
	_ adapter.MembershipEnforcer = (*NoopBotAdapter)(nil)
)

// NoopBotAdapter logs platform calls instead of performing them (bot.mode: noop).
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopTelegram").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().
		Int64("chat_id", params.ChatID).
		Str("text", params.Text).
		Int("button_rows", len(params.Buttons)).
		Bool("photo", len(params.Photo) > 0).
		Msg("send message")
	return nil
}

func (b *NoopBotAdapter) CreateInvite(ctx context.Context, channelID int64, expiresAt time.Time) (string, error) {
	link := fmt.Sprintf("https://t.me/+noop%d_%d", -channelID, expiresAt.Unix())
	b.log.Info().Int64("channel_id", channelID).Time("expires_at", expiresAt).Str("link", link).Msg("create invite")
	return link, nil
}

func (b *NoopBotAdapter) Revoke(ctx context.Context, channelID, userID int64) error {
	b.log.Info().Int64("channel_id", channelID).Int64("tg_id", userID).Msg("revoke member")
	return nil
}
