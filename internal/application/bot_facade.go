package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/usecase"

	"github.com/rs/zerolog"
)

// Reply is one message the adapter sends back to the chat that triggered an update.
type Reply struct {
	Text    string
	Buttons [][]adapter.InlineButton
	Photo   []byte
	// CloseKeyboard asks the adapter to strip the buttons of the message that was pressed.
	CloseKeyboard bool
}

// BotFacade composes use cases into replies.
// The adapter owns transport concerns; every text decision lives here.
type BotFacade struct {
	Catalog    usecase.CatalogUseCase
	Lifecycle  usecase.LifecycleUseCase
	Onboarding usecase.OnboardingUseCase
	Sweeper    usecase.SweepUseCase

	tr       usecase.Translator
	currency string
	log      *zerolog.Logger
}

func NewBotFacade(
	catalog usecase.CatalogUseCase,
	lifecycle usecase.LifecycleUseCase,
	onboarding usecase.OnboardingUseCase,
	sweeper usecase.SweepUseCase,
	tr usecase.Translator,
	currency string,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		Catalog:    catalog,
		Lifecycle:  lifecycle,
		Onboarding: onboarding,
		Sweeper:    sweeper,
		tr:         tr,
		currency:   currency,
		log:        logger,
	}
}

func (b *BotFacade) text(key string, args ...any) *Reply {
	return &Reply{Text: b.tr.T(key, args...)}
}

// HandleStart answers /start. A numeric argument is a channel deep link.
func (b *BotFacade) HandleStart(ctx context.Context, userID int64, arg string, isAdmin bool) (*Reply, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		if isAdmin {
			return &Reply{
				Text:    b.tr.T("welcome_admin"),
				Buttons: [][]adapter.InlineButton{{{Text: b.tr.T("btn_add_channel"), Data: "cmd:add"}}},
			}, nil
		}
		return b.text("welcome_user"), nil
	}
	channelID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || channelID == 0 {
		return b.text("error_bad_link"), nil
	}
	return b.HandleBrowse(ctx, userID, channelID)
}

// HandleBrowse lists a channel's plans as buttons.
func (b *BotFacade) HandleBrowse(ctx context.Context, userID, channelID int64) (*Reply, error) {
	ch, err := b.Lifecycle.Browse(ctx, userID, channelID)
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		return b.text("error_no_plans", ch.Name), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case err != nil:
		return nil, err
	}

	rows := make([][]adapter.InlineButton, 0, len(ch.Plans))
	for _, p := range ch.Plans {
		claim := model.PaymentClaim{UserID: userID, ChannelID: ch.ID, Minutes: p.Minutes}
		rows = append(rows, []adapter.InlineButton{{
			Text: b.tr.T("btn_plan", p.Label(), p.Price, b.currency),
			Data: model.NewAction(model.ActionSelectPlan, claim).Encode(),
		}})
	}
	return &Reply{Text: b.tr.T("browse_header", ch.Name), Buttons: rows}, nil
}

// HandleAction dispatches a flow button. presser is the user who pressed it.
func (b *BotFacade) HandleAction(ctx context.Context, presser model.Claimant, action model.Action) (*Reply, error) {
	// only rejects unknown kinds; the state is for the log line
	state, err := model.Advance(action.Kind)
	if err != nil {
		return nil, err
	}
	claim := action.Claim()
	b.log.Debug().
		Str("flow_state", string(state)).
		Int64("tg_id", claim.UserID).
		Int64("channel_id", claim.ChannelID).
		Int64("presser", presser.ID).
		Msg("flow action")
	switch action.Kind {
	case model.ActionSelectPlan, model.ActionPaid:
		// plan and payment buttons belong to the user they were rendered for
		if presser.ID != claim.UserID {
			return b.text("error_not_your_button"), nil
		}
	}

	switch action.Kind {
	case model.ActionSelectPlan:
		return b.selectPlan(ctx, claim)
	case model.ActionPaid:
		return b.claimPayment(ctx, claim, presser)
	case model.ActionApprove:
		return b.approve(ctx, presser.ID, claim)
	default:
		return b.reject(ctx, presser.ID, claim)
	}
}

func (b *BotFacade) selectPlan(ctx context.Context, claim model.PaymentClaim) (*Reply, error) {
	pi, err := b.Lifecycle.SelectPlan(ctx, claim.UserID, claim.ChannelID, claim.Minutes)
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		return b.text("error_plan_gone"), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case err != nil:
		return nil, err
	}
	return &Reply{
		Text:  pi.Text,
		Photo: pi.QR,
		// upi:// is not an allowed button URL scheme, the QR carries the link
		Buttons: [][]adapter.InlineButton{
			{{Text: b.tr.T("btn_paid"), Data: model.NewAction(model.ActionPaid, pi.Claim).Encode()}},
		},
	}, nil
}

func (b *BotFacade) claimPayment(ctx context.Context, claim model.PaymentClaim, presser model.Claimant) (*Reply, error) {
	err := b.Lifecycle.ClaimPayment(ctx, claim, presser)
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		return b.text("error_plan_gone"), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case errors.Is(err, domain.ErrOperationFailed):
		return b.text("error_claim_not_delivered"), nil
	case err != nil:
		return nil, err
	}
	return &Reply{Text: b.tr.T("claim_sent"), CloseKeyboard: true}, nil
}

func (b *BotFacade) approve(ctx context.Context, adminID int64, claim model.PaymentClaim) (*Reply, error) {
	sub, err := b.Lifecycle.Approve(ctx, adminID, claim)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return b.text("error_not_channel_admin"), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case errors.Is(err, domain.ErrIssuer):
		// keyboard stays so the administrator can retry once the bot has invite rights
		return b.text("error_invite_failed", claim.UserID), nil
	case err != nil:
		return nil, err
	}
	return &Reply{
		Text:          b.tr.T("admin_approved", claim.UserID, sub.ExpiresAt.Format(time.RFC1123)),
		CloseKeyboard: true,
	}, nil
}

func (b *BotFacade) reject(ctx context.Context, adminID int64, claim model.PaymentClaim) (*Reply, error) {
	err := b.Lifecycle.Reject(ctx, adminID, claim)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return b.text("error_not_channel_admin"), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case err != nil:
		return nil, err
	}
	return &Reply{Text: b.tr.T("admin_rejected", claim.UserID), CloseKeyboard: true}, nil
}

// HandleStatus lists the caller's subscriptions.
func (b *BotFacade) HandleStatus(ctx context.Context, userID int64) (*Reply, error) {
	views, err := b.Lifecycle.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return b.text("status_empty"), nil
	}
	var sb strings.Builder
	sb.WriteString(b.tr.T("status_header"))
	for _, v := range views {
		sb.WriteString("\n")
		if v.Remaining <= 0 {
			sb.WriteString(b.tr.T("status_line_expired", v.ChannelName))
			continue
		}
		sb.WriteString(b.tr.T("status_line", v.ChannelName, v.ExpiresAt.Format("2006-01-02 15:04 MST"), formatRemaining(v.Remaining)))
	}
	return &Reply{Text: sb.String()}, nil
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int((d - time.Duration(hours)*time.Hour) / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// HandleAddChannel starts channel onboarding.
func (b *BotFacade) HandleAddChannel(ctx context.Context, adminID int64) (*Reply, error) {
	if err := b.Onboarding.BeginAddChannel(ctx, adminID); err != nil {
		return nil, err
	}
	return b.text("ask_forward"), nil
}

// HandleChannels lists the caller's channels with their deep links.
func (b *BotFacade) HandleChannels(ctx context.Context, adminID int64) (*Reply, error) {
	list, err := b.Catalog.ListChannels(ctx, adminID)
	if err != nil {
		return nil, err
	}
	addRow := []adapter.InlineButton{{Text: b.tr.T("btn_add_channel"), Data: "cmd:add"}}
	if len(list) == 0 {
		return &Reply{Text: b.tr.T("channels_empty"), Buttons: [][]adapter.InlineButton{addRow}}, nil
	}

	var sb strings.Builder
	sb.WriteString(b.tr.T("channels_header"))
	rows := make([][]adapter.InlineButton, 0, len(list)+1)
	for _, ch := range list {
		sb.WriteString("\n\n")
		sb.WriteString(b.tr.T("channel_line", ch.Name, ch.ID, len(ch.Plans), b.Onboarding.DeepLink(ch.ID)))
		rows = append(rows, []adapter.InlineButton{{
			Text: b.tr.T("btn_edit_plans", ch.Name),
			Data: "edit:" + strconv.FormatInt(ch.ID, 10),
		}})
	}
	rows = append(rows, addRow)
	return &Reply{Text: sb.String(), Buttons: rows}, nil
}

// HandleEditPlans asks for a new catalog for channelID.
func (b *BotFacade) HandleEditPlans(ctx context.Context, adminID, channelID int64) (*Reply, error) {
	ch, err := b.Onboarding.BeginEditPlans(ctx, adminID, channelID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return b.text("error_not_channel_admin"), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case err != nil:
		return nil, err
	}
	return b.text("ask_plans", ch.Name, b.currentPlans(ch.Plans)), nil
}

// HandleSetPlans handles "/setplans <channelID> <plans>" without a dialog.
func (b *BotFacade) HandleSetPlans(ctx context.Context, adminID int64, args string) (*Reply, error) {
	idText, plansText, _ := strings.Cut(strings.TrimSpace(args), " ")
	channelID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil || strings.TrimSpace(plansText) == "" {
		return b.text("usage_setplans"), nil
	}
	ch, err := b.Catalog.GetChannel(ctx, channelID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case err != nil:
		return nil, err
	}
	if ch.AdminID != adminID {
		return b.text("error_not_channel_admin"), nil
	}
	plans, err := b.Catalog.SetPlansFromText(ctx, channelID, plansText)
	if errors.Is(err, domain.ErrInvalidFormat) {
		return b.text("invalid_plans"), nil
	}
	if err != nil {
		return nil, err
	}
	return b.text("plans_saved", ch.Name, b.currentPlans(plans), b.Onboarding.DeepLink(ch.ID)), nil
}

// HandleAdminText answers a free-text message from an administrator. It
// returns nil when no prompt is pending.
func (b *BotFacade) HandleAdminText(ctx context.Context, adminID int64, reply usecase.AdminReply) (*Reply, error) {
	res, err := b.Onboarding.HandleReply(ctx, adminID, reply)
	switch {
	case errors.Is(err, domain.ErrNoPendingPrompt):
		return nil, nil
	case errors.Is(err, usecase.ErrNotForwarded):
		return b.text("error_not_forwarded"), nil
	case errors.Is(err, domain.ErrInvalidArgument):
		return b.text("error_bad_channel"), nil
	case errors.Is(err, domain.ErrInvalidFormat):
		return b.text("invalid_plans"), nil
	case errors.Is(err, domain.ErrNotFound):
		return b.text("error_channel_not_found"), nil
	case err != nil:
		return nil, err
	}

	switch res.Step {
	case usecase.StepChannelRegistered:
		r := b.text("channel_registered", res.Channel.Name, res.Channel.ID)
		r.Text += "\n\n" + b.tr.T("ask_plans", res.Channel.Name, b.currentPlans(res.Plans))
		return r, nil
	default:
		return b.text("plans_saved", res.Channel.Name, b.currentPlans(res.Plans), res.DeepLink), nil
	}
}

func (b *BotFacade) currentPlans(c model.Catalog) string {
	if len(c) == 0 {
		return b.tr.T("plans_none")
	}
	lines := make([]string, 0, len(c))
	for _, p := range c {
		lines = append(lines, fmt.Sprintf("• %s (%d): %s %s", p.Label(), p.Minutes, p.Price, b.currency))
	}
	return strings.Join(lines, "\n")
}

// HandleCancel drops a pending onboarding prompt.
func (b *BotFacade) HandleCancel(ctx context.Context, adminID int64) (*Reply, error) {
	had, err := b.Onboarding.Cancel(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !had {
		return b.text("cancel_nothing"), nil
	}
	return b.text("cancel_done"), nil
}

// HandleSweep runs an out-of-band expiry sweep for an administrator.
func (b *BotFacade) HandleSweep(ctx context.Context) (*Reply, error) {
	report, err := b.Sweeper.Sweep(ctx)
	if errors.Is(err, domain.ErrSweepInProgress) {
		return b.text("sweep_busy"), nil
	}
	if err != nil && report == nil {
		return nil, err
	}
	if err != nil {
		// remaining rows are picked up by the next tick
		b.log.Warn().Err(err).Int("scanned", report.Scanned).Msg("manual sweep stopped early")
	}
	return b.text("sweep_report",
		report.Scanned, report.Removed, report.Renewed,
		len(report.Expected), len(report.Unexpected),
		report.Duration.Round(time.Millisecond),
	), nil
}

func (b *BotFacade) HandleHelp(isAdmin bool) *Reply {
	if isAdmin {
		return b.text("help_admin")
	}
	return b.text("help_user")
}

// ErrorReply is the generic answer when a handler failed unexpectedly.
func (b *BotFacade) ErrorReply() *Reply { return b.text("error_generic") }

func (b *BotFacade) RateLimited() string { return b.tr.T("error_rate_limited") }

func (b *BotFacade) Unauthorized() *Reply { return b.text("error_unauthorized") }
