package telegram

import (
	"context"
	"strings"

	"telegram-channel-subscription/internal/application"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type cbHandler func(ctx context.Context, query *tgbotapi.CallbackQuery, data string) (*application.Reply, error)

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"cmd:add":      r.adminOnlyCB(r.addChannelCBRoute),
		"cmd:channels": r.adminOnlyCB(r.channelsCBRoute),
	}
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: "edit:", Fn: r.adminOnlyCB(r.editPlansCBRoute)},
	}
}

func (r *RealTelegramBotAdapter) adminOnlyCB(next cbHandler) cbHandler {
	return func(ctx context.Context, q *tgbotapi.CallbackQuery, data string) (*application.Reply, error) {
		if !r.isAdmin(q.From.ID) {
			metrics.IncAdminCommand(data, "unauthorized")
			return r.facade.Unauthorized(), nil
		}
		metrics.IncAdminCommand(data, "authorized")
		return next(ctx, q, data)
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.From == nil {
		return nil
	}
	// stop the client spinner
	defer r.platform.AnswerCallback(q.ID, "")

	ctx = logging.WithTgID(ctx, q.From.ID)
	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}

	data := strings.TrimSpace(q.Data)
	kind, _, _ := strings.Cut(data, ":")
	metrics.IncTelegramCallback(kind)
	if !r.allow(ctx, q.From.ID, "cb:"+kind, callbackLimit) {
		return r.send(ctx, chatID, &application.Reply{Text: r.facade.RateLimited()})
	}

	reply, err := r.routeQuery(ctx, q, data)
	if err != nil {
		return r.fail(ctx, chatID, err)
	}
	if reply == nil {
		return nil
	}
	if reply.CloseKeyboard && q.Message != nil {
		if err := r.platform.CloseKeyboard(chatID, q.Message.MessageID); err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("failed to close keyboard")
		}
	}
	return r.send(ctx, chatID, reply)
}

func (r *RealTelegramBotAdapter) routeQuery(ctx context.Context, q *tgbotapi.CallbackQuery, data string) (*application.Reply, error) {
	if model.IsAction(data) {
		action, err := model.ParseAction(data)
		if err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("malformed flow callback")
			return r.facade.ErrorReply(), nil
		}
		ctx = logging.WithChannelID(ctx, action.ChannelID)
		presser := model.Claimant{ID: q.From.ID, FirstName: q.From.FirstName, Username: q.From.UserName}
		return r.facade.HandleAction(ctx, presser, action)
	}
	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, q, data)
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, q, data)
		}
	}
	logging.With(ctx, r.log).Warn().Str("data", data).Msg("unknown callback data")
	return nil, nil
}

func (r *RealTelegramBotAdapter) addChannelCBRoute(ctx context.Context, q *tgbotapi.CallbackQuery, _ string) (*application.Reply, error) {
	return r.facade.HandleAddChannel(ctx, q.From.ID)
}

func (r *RealTelegramBotAdapter) channelsCBRoute(ctx context.Context, q *tgbotapi.CallbackQuery, _ string) (*application.Reply, error) {
	return r.facade.HandleChannels(ctx, q.From.ID)
}

func (r *RealTelegramBotAdapter) editPlansCBRoute(ctx context.Context, q *tgbotapi.CallbackQuery, data string) (*application.Reply, error) {
	channelID, ok := parseChannelID(strings.TrimPrefix(data, "edit:"))
	if !ok {
		return r.facade.ErrorReply(), nil
	}
	return r.facade.HandleEditPlans(ctx, q.From.ID, channelID)
}
