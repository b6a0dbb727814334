//go:build !integration

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/ports/adapter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func TestPlatform_CreateInvite(t *testing.T) {
	api := newFakeAPI()
	api.result = json.RawMessage(`{"invite_link":"https://t.me/+AbCd","member_limit":1}`)
	p := newPlatform(api, nopLogger())
	expires := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	link, err := p.CreateInvite(context.Background(), -100123, expires)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+AbCd", link)

	reqs := api.requestsOf("createChatInviteLink")
	require.Len(t, reqs, 1)
	cfg := reqs[0].(tgbotapi.CreateChatInviteLinkConfig)
	assert.Equal(t, int64(-100123), cfg.ChatID)
	assert.Equal(t, 1, cfg.MemberLimit)
	assert.Equal(t, int(expires.Unix()), cfg.ExpireDate)
}

func TestPlatform_CreateInviteErrors(t *testing.T) {
	t.Run("platform refusal", func(t *testing.T) {
		api := newFakeAPI()
		api.failOn["createChatInviteLink"] = errPlatform
		_, err := newPlatform(api, nopLogger()).CreateInvite(context.Background(), -1, time.Now())
		assert.True(t, errors.Is(err, domain.ErrIssuer))
		assert.True(t, errors.Is(err, errPlatform))
	})

	t.Run("empty link", func(t *testing.T) {
		api := newFakeAPI()
		api.result = json.RawMessage(`{}`)
		_, err := newPlatform(api, nopLogger()).CreateInvite(context.Background(), -1, time.Now())
		assert.True(t, errors.Is(err, domain.ErrIssuer))
		assert.True(t, errors.Is(err, domain.ErrPlatformResponse))
	})
}

func TestPlatform_Revoke(t *testing.T) {
	t.Run("bans then lifts the ban", func(t *testing.T) {
		api := newFakeAPI()
		require.NoError(t, newPlatform(api, nopLogger()).Revoke(context.Background(), -100, 7))

		bans := api.requestsOf("banChatMember")
		unbans := api.requestsOf("unbanChatMember")
		require.Len(t, bans, 1)
		require.Len(t, unbans, 1)
		unban := unbans[0].(tgbotapi.UnbanChatMemberConfig)
		assert.True(t, unban.OnlyIfBanned)
		assert.Equal(t, int64(7), unban.UserID)
	})

	t.Run("ban failure is an enforcer error and skips unban", func(t *testing.T) {
		api := newFakeAPI()
		api.failOn["banChatMember"] = errPlatform
		err := newPlatform(api, nopLogger()).Revoke(context.Background(), -100, 7)

		var pe *domain.PlatformError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "ban", pe.Op)
		assert.True(t, errors.Is(err, domain.ErrEnforcer))
		assert.Empty(t, api.requestsOf("unbanChatMember"))
	})

	t.Run("unban failure is reported", func(t *testing.T) {
		api := newFakeAPI()
		api.failOn["unbanChatMember"] = errPlatform
		err := newPlatform(api, nopLogger()).Revoke(context.Background(), -100, 7)
		assert.True(t, errors.Is(err, domain.ErrEnforcer))
	})
}

func TestPlatform_SendMessage(t *testing.T) {
	api := newFakeAPI()
	p := newPlatform(api, nopLogger())
	ctx := context.Background()

	require.NoError(t, p.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:  5,
		Text:    "pay here",
		Photo:   []byte{1, 2, 3},
		Buttons: [][]adapter.InlineButton{{{Text: "Paid", Data: "paid:5:-100:30"}}},
	}))
	require.NoError(t, p.SendMessage(ctx, adapter.SendMessageParams{ChatID: 5, Text: "plain"}))

	sent := api.sentMessages()
	require.Len(t, sent, 2)
	photo, ok := sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok, "expected a photo, got %T", sent[0])
	assert.Equal(t, "pay here", photo.Caption)
	markup := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "paid:5:-100:30", *markup.InlineKeyboard[0][0].CallbackData)

	msg, ok := sent[1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestInlineKeyboard(t *testing.T) {
	kb := inlineKeyboard([][]adapter.InlineButton{
		{{Text: "Pay", URL: "upi://pay?pa=x"}},
		{},
		{{Text: " "}},
	})
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "upi://pay?pa=x", *kb.InlineKeyboard[0][0].URL)
	assert.Equal(t, "•", *kb.InlineKeyboard[1][0].CallbackData)
}
