package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"telegram-channel-subscription/internal/config"
	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ LifecycleUseCase = (*lifecycleUC)(nil)

// LifecycleUseCase drives a user's access request from plan selection to approval.
// No flow state is stored between steps: every step receives the full claim.
type LifecycleUseCase interface {
	Browse(ctx context.Context, userID, channelID int64) (*model.Channel, error)
	SelectPlan(ctx context.Context, userID, channelID int64, minutes int) (*PaymentInstructions, error)
	ClaimPayment(ctx context.Context, claim model.PaymentClaim, claimant model.Claimant) error
	Approve(ctx context.Context, adminID int64, claim model.PaymentClaim) (*model.Subscription, error)
	Reject(ctx context.Context, adminID int64, claim model.PaymentClaim) error
	Status(ctx context.Context, userID int64) ([]SubscriptionView, error)
}

// PaymentInstructions is what a user needs to pay for a selected plan.
type PaymentInstructions struct {
	Channel *model.Channel
	Plan    model.Plan
	URI     string
	QR      []byte // PNG, nil when rendering failed
	Text    string
	Claim   model.PaymentClaim
}

// SubscriptionView is one line of a user's /status answer.
type SubscriptionView struct {
	ChannelID   int64
	ChannelName string
	ExpiresAt   time.Time
	Remaining   time.Duration
}

type lifecycleUC struct {
	channels repository.ChannelRepository
	subs     repository.SubscriptionRepository
	issuer   adapter.InviteIssuer
	notifier adapter.Notifier
	qr       adapter.QRGenerator
	tr       Translator
	payment  config.PaymentConfig
	now      Clock
	log      *zerolog.Logger
}

func NewLifecycleUseCase(
	channels repository.ChannelRepository,
	subs repository.SubscriptionRepository,
	issuer adapter.InviteIssuer,
	notifier adapter.Notifier,
	qr adapter.QRGenerator,
	tr Translator,
	payment config.PaymentConfig,
	clock Clock,
	logger *zerolog.Logger,
) *lifecycleUC {
	if clock == nil {
		clock = systemClock
	}
	return &lifecycleUC{
		channels: channels,
		subs:     subs,
		issuer:   issuer,
		notifier: notifier,
		qr:       qr,
		tr:       tr,
		payment:  payment,
		now:      clock,
		log:      logger,
	}
}

// Browse returns the channel for a deep-link entry. A channel without plans is
// returned together with domain.ErrPlanNotFound.
func (l *lifecycleUC) Browse(ctx context.Context, userID, channelID int64) (*model.Channel, error) {
	defer logging.TraceDuration(l.log, "LifecycleUC.Browse")()

	ch, err := l.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if len(ch.Plans) == 0 {
		return ch, domain.ErrPlanNotFound
	}
	return ch, nil
}

func (l *lifecycleUC) SelectPlan(ctx context.Context, userID, channelID int64, minutes int) (*PaymentInstructions, error) {
	defer logging.TraceDuration(l.log, "LifecycleUC.SelectPlan")()

	ch, err := l.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	plan, err := ch.Plan(minutes)
	if err != nil {
		return nil, err
	}

	uri := l.paymentURI(plan.Price)
	out := &PaymentInstructions{
		Channel: ch,
		Plan:    plan,
		URI:     uri,
		Text:    l.tr.T("payment_instructions", ch.Name, plan.Label(), plan.Price, l.payment.Currency, l.payment.UPIID),
		Claim:   model.PaymentClaim{UserID: userID, ChannelID: channelID, Minutes: minutes},
	}
	if l.qr != nil {
		png, err := l.qr.Generate(uri, l.payment.QRSize)
		if err != nil {
			// text instructions still carry the UPI id
			l.log.Warn().Err(err).Int64("channel_id", channelID).Msg("failed to render payment QR")
		} else {
			out.QR = png
		}
	}
	metrics.IncSubscriptionEvent("selected")
	return out, nil
}

// paymentURI builds the UPI deep link. The price is forwarded verbatim.
func (l *lifecycleUC) paymentURI(price string) string {
	var b strings.Builder
	b.WriteString("upi://pay?pa=")
	b.WriteString(upiEscape(l.payment.UPIID))
	if l.payment.Payee != "" {
		b.WriteString("&pn=")
		b.WriteString(upiEscape(l.payment.Payee))
	}
	b.WriteString("&am=")
	b.WriteString(upiEscape(price))
	b.WriteString("&cu=")
	b.WriteString(upiEscape(l.payment.Currency))
	b.WriteString("&tn=")
	b.WriteString(upiEscape(l.payment.Note))
	return b.String()
}

func upiEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ClaimPayment forwards the claim to the channel administrator with approve/reject
// buttons. Nothing is verified or stored.
func (l *lifecycleUC) ClaimPayment(ctx context.Context, claim model.PaymentClaim, claimant model.Claimant) error {
	defer logging.TraceDuration(l.log, "LifecycleUC.ClaimPayment")()

	ch, err := l.channels.FindByID(ctx, claim.ChannelID)
	if err != nil {
		return err
	}
	plan, err := ch.Plan(claim.Minutes)
	if err != nil {
		return err
	}

	username := claimant.Username
	if username == "" {
		username = "-"
	}
	params := adapter.SendMessageParams{
		ChatID: ch.AdminID,
		Text:   l.tr.T("admin_payment_claim", claimant.FirstName, username, claim.UserID, ch.Name, plan.Label(), plan.Price, l.payment.Currency),
		Buttons: [][]adapter.InlineButton{{
			{Text: l.tr.T("btn_approve"), Data: model.NewAction(model.ActionApprove, claim).Encode()},
			{Text: l.tr.T("btn_reject"), Data: model.NewAction(model.ActionReject, claim).Encode()},
		}},
	}
	if err := l.notifier.SendMessage(ctx, params); err != nil {
		l.log.Error().Err(err).Int64("channel_id", claim.ChannelID).Int64("tg_id", claim.UserID).Msg("failed to forward payment claim")
		return fmt.Errorf("%w: forward claim: %v", domain.ErrOperationFailed, err)
	}
	metrics.IncSubscriptionEvent("claimed")
	return nil
}

// Approve issues a single-use invite and records the expiry. An issuer failure
// aborts before anything is stored and the user is not messaged. A second approval
// for the same pair overwrites the expiry.
func (l *lifecycleUC) Approve(ctx context.Context, adminID int64, claim model.PaymentClaim) (*model.Subscription, error) {
	defer logging.TraceDuration(l.log, "LifecycleUC.Approve")()

	ch, err := l.authorize(ctx, adminID, claim)
	if err != nil {
		return nil, err
	}
	log := l.log.With().Int64("channel_id", claim.ChannelID).Int64("tg_id", claim.UserID).Logger()

	plan := model.Plan{Minutes: claim.Minutes}
	expiresAt := l.now().Add(plan.Duration()).UTC()

	link, err := l.issuer.CreateInvite(ctx, claim.ChannelID, expiresAt)
	if err != nil {
		metrics.IncPlatformError("create_invite")
		if !errors.Is(err, domain.ErrIssuer) {
			err = domain.NewIssuerError(claim.ChannelID, err)
		}
		log.Error().Err(err).Msg("invite issue failed, approval aborted")
		return nil, err
	}

	sub := model.Subscription{UserID: claim.UserID, ChannelID: claim.ChannelID, ExpiresAt: expiresAt}
	if err := l.subs.Upsert(ctx, sub); err != nil {
		log.Error().Err(err).Msg("failed to store subscription after issuing invite")
		return nil, fmt.Errorf("%w: store subscription: %v", domain.ErrOperationFailed, err)
	}
	metrics.IncSubscriptionEvent("approved")
	log.Info().Time("expires_at", expiresAt).Msg("subscription approved")

	msg := adapter.SendMessageParams{
		ChatID: claim.UserID,
		Text:   l.tr.T("access_granted", ch.Name, link, expiresAt.Format("2006-01-02 15:04 MST")),
	}
	if err := l.notifier.SendMessage(ctx, msg); err != nil {
		log.Warn().Err(err).Msg("failed to deliver invite link")
	}
	return &sub, nil
}

// Reject tells the user the claim was declined. The store is not touched.
func (l *lifecycleUC) Reject(ctx context.Context, adminID int64, claim model.PaymentClaim) error {
	defer logging.TraceDuration(l.log, "LifecycleUC.Reject")()

	ch, err := l.authorize(ctx, adminID, claim)
	if err != nil {
		return err
	}
	metrics.IncSubscriptionEvent("rejected")

	msg := adapter.SendMessageParams{ChatID: claim.UserID, Text: l.tr.T("access_rejected", ch.Name)}
	if err := l.notifier.SendMessage(ctx, msg); err != nil {
		l.log.Warn().Err(err).Int64("tg_id", claim.UserID).Msg("failed to deliver rejection")
	}
	return nil
}

func (l *lifecycleUC) authorize(ctx context.Context, adminID int64, claim model.PaymentClaim) (*model.Channel, error) {
	if claim.UserID <= 0 || !model.ValidMinutes(claim.Minutes) {
		return nil, domain.ErrInvalidArgument
	}
	ch, err := l.channels.FindByID(ctx, claim.ChannelID)
	if err != nil {
		return nil, err
	}
	if ch.AdminID != adminID {
		l.log.Warn().Int64("channel_id", ch.ID).Int64("caller", adminID).Msg("decision from non-owner refused")
		return nil, domain.ErrUnauthorized
	}
	return ch, nil
}

// Status lists the user's recorded subscriptions, soonest expiry first.
func (l *lifecycleUC) Status(ctx context.Context, userID int64) ([]SubscriptionView, error) {
	defer logging.TraceDuration(l.log, "LifecycleUC.Status")()

	subs, err := l.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	views := make([]SubscriptionView, 0, len(subs))
	for _, s := range subs {
		v := SubscriptionView{ChannelID: s.ChannelID, ExpiresAt: s.ExpiresAt, Remaining: s.Remaining(now)}
		if ch, err := l.channels.FindByID(ctx, s.ChannelID); err == nil {
			v.ChannelName = ch.Name
		} else {
			v.ChannelName = fmt.Sprintf("%d", s.ChannelID)
		}
		views = append(views, v)
	}
	return views, nil
}
