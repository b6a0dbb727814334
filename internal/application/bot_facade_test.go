//go:build !integration

package application_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"telegram-channel-subscription/internal/application"
	"telegram-channel-subscription/internal/config"
	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/infra/db/memory"
	"telegram-channel-subscription/internal/usecase"

	"github.com/rs/zerolog"
)

const (
	admin   int64 = 1111
	user    int64 = 5555
	channel int64 = -1001234567890
)

type keyTranslator struct{}

func (keyTranslator) T(key string, args ...any) string {
	parts := []string{key}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, "|")
}

type stubIssuer struct{ err error }

func (s stubIssuer) CreateInvite(context.Context, int64, time.Time) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://t.me/+abc", nil
}

type stubEnforcer struct{}

func (stubEnforcer) Revoke(context.Context, int64, int64) error { return nil }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []adapter.SendMessageParams
}

func (r *recordingNotifier) SendMessage(_ context.Context, p adapter.SendMessageParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, p)
	return nil
}

type stubQR struct{}

func (stubQR) Generate(string, int) ([]byte, error) { return []byte{0x89, 'P', 'N', 'G'}, nil }

type fixture struct {
	facade   *application.BotFacade
	notifier *recordingNotifier
	catalog  usecase.CatalogUseCase
}

func newFixture(t *testing.T, issuer adapter.InviteIssuer) *fixture {
	t.Helper()
	log := zerolog.Nop()
	channels := memory.NewChannelRepo()
	subs := memory.NewSubscriptionRepo()
	n := &recordingNotifier{}
	tr := keyTranslator{}
	pay := config.PaymentConfig{UPIID: "shop@upi", Currency: "INR", Note: "Subscription", QRSize: 128}

	catalog := usecase.NewCatalogUseCase(channels, &log)
	lifecycle := usecase.NewLifecycleUseCase(channels, subs, issuer, n, stubQR{}, tr, pay, nil, &log)
	onboarding := usecase.NewOnboardingUseCase(catalog, memory.NewPromptRepo(time.Hour), "paywall_bot", nil, &log)
	sweeper := usecase.NewSweepUseCase(channels, subs, stubEnforcer{}, n, memory.NewLocker(), tr, 100, time.Minute, nil, &log)

	return &fixture{
		facade:   application.NewBotFacade(catalog, lifecycle, onboarding, sweeper, tr, "INR", &log),
		notifier: n,
		catalog:  catalog,
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.catalog.RegisterChannel(ctx, channel, "Signals", admin); err != nil {
		t.Fatalf("RegisterChannel: %v", err)
	}
	if _, err := f.catalog.SetPlans(ctx, channel, map[int]string{30: "99", 43200: "1999"}); err != nil {
		t.Fatalf("SetPlans: %v", err)
	}
}

func TestHandleStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubIssuer{})

	t.Run("no argument greets by role", func(t *testing.T) {
		r, err := f.facade.HandleStart(ctx, admin, "", true)
		if err != nil || r.Text != "welcome_admin" || len(r.Buttons) != 1 {
			t.Fatalf("unexpected admin greeting: %+v %v", r, err)
		}
		r, _ = f.facade.HandleStart(ctx, user, "", false)
		if r.Text != "welcome_user" {
			t.Errorf("unexpected user greeting: %q", r.Text)
		}
	})

	t.Run("garbage deep link", func(t *testing.T) {
		r, _ := f.facade.HandleStart(ctx, user, "abc", false)
		if r.Text != "error_bad_link" {
			t.Errorf("got %q", r.Text)
		}
	})

	t.Run("unknown channel", func(t *testing.T) {
		r, _ := f.facade.HandleStart(ctx, user, "-100999", false)
		if r.Text != "error_channel_not_found" {
			t.Errorf("got %q", r.Text)
		}
	})

	t.Run("channel without plans", func(t *testing.T) {
		if _, err := f.catalog.RegisterChannel(ctx, -100777, "Empty", admin); err != nil {
			t.Fatal(err)
		}
		r, _ := f.facade.HandleStart(ctx, user, "-100777", false)
		if r.Text != "error_no_plans|Empty" {
			t.Errorf("got %q", r.Text)
		}
	})

	t.Run("lists plans as select buttons", func(t *testing.T) {
		f.seed(t)
		r, err := f.facade.HandleStart(ctx, user, fmt.Sprint(channel), false)
		if err != nil {
			t.Fatal(err)
		}
		if len(r.Buttons) != 2 {
			t.Fatalf("expected 2 plan rows, got %d", len(r.Buttons))
		}
		a, err := model.ParseAction(r.Buttons[0][0].Data)
		if err != nil || a.Kind != model.ActionSelectPlan || a.UserID != user || a.Minutes != 30 {
			t.Errorf("unexpected first button %+v (%v)", a, err)
		}
	})
}

func TestHandleAction_FullFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubIssuer{})
	f.seed(t)
	claim := model.PaymentClaim{UserID: user, ChannelID: channel, Minutes: 30}
	buyer := model.Claimant{ID: user, FirstName: "Asha", Username: "asha"}

	r, err := f.facade.HandleAction(ctx, buyer, model.NewAction(model.ActionSelectPlan, claim))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Photo) == 0 || !strings.HasPrefix(r.Text, "payment_instructions|Signals|") {
		t.Fatalf("expected QR and instructions, got %+v", r)
	}
	if a, err := model.ParseAction(r.Buttons[0][0].Data); err != nil || a.Kind != model.ActionPaid {
		t.Fatalf("expected paid button, got %+v", r.Buttons)
	}

	r, err = f.facade.HandleAction(ctx, buyer, model.NewAction(model.ActionPaid, claim))
	if err != nil || r.Text != "claim_sent" || !r.CloseKeyboard {
		t.Fatalf("unexpected claim reply %+v %v", r, err)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].ChatID != admin {
		t.Fatalf("expected admin alert, got %+v", f.notifier.sent)
	}

	owner := model.Claimant{ID: admin}
	r, err = f.facade.HandleAction(ctx, owner, model.NewAction(model.ActionApprove, claim))
	if err != nil || !strings.HasPrefix(r.Text, "admin_approved|5555|") || !r.CloseKeyboard {
		t.Fatalf("unexpected approval reply %+v %v", r, err)
	}

	r, _ = f.facade.HandleStatus(ctx, user)
	if !strings.Contains(r.Text, "status_line|Signals|") {
		t.Errorf("status should list the channel, got %q", r.Text)
	}
}

func TestHandleAction_Guards(t *testing.T) {
	ctx := context.Background()
	claim := model.PaymentClaim{UserID: user, ChannelID: channel, Minutes: 30}

	t.Run("another user cannot press a buyer's button", func(t *testing.T) {
		f := newFixture(t, stubIssuer{})
		f.seed(t)
		r, _ := f.facade.HandleAction(ctx, model.Claimant{ID: 42}, model.NewAction(model.ActionPaid, claim))
		if r.Text != "error_not_your_button" || len(f.notifier.sent) != 0 {
			t.Errorf("got %+v, sent %d", r, len(f.notifier.sent))
		}
	})

	t.Run("only the channel admin decides", func(t *testing.T) {
		f := newFixture(t, stubIssuer{})
		f.seed(t)
		r, _ := f.facade.HandleAction(ctx, model.Claimant{ID: user}, model.NewAction(model.ActionApprove, claim))
		if r.Text != "error_not_channel_admin" {
			t.Errorf("got %q", r.Text)
		}
	})

	t.Run("issuer failure keeps the keyboard", func(t *testing.T) {
		f := newFixture(t, stubIssuer{err: domain.NewIssuerError(channel, errors.New("no rights"))})
		f.seed(t)
		r, err := f.facade.HandleAction(ctx, model.Claimant{ID: admin}, model.NewAction(model.ActionApprove, claim))
		if err != nil || r.CloseKeyboard || !strings.HasPrefix(r.Text, "error_invite_failed") {
			t.Errorf("got %+v %v", r, err)
		}
	})

	t.Run("removed plan", func(t *testing.T) {
		f := newFixture(t, stubIssuer{})
		f.seed(t)
		gone := claim
		gone.Minutes = 60
		r, _ := f.facade.HandleAction(ctx, model.Claimant{ID: user}, model.NewAction(model.ActionSelectPlan, gone))
		if r.Text != "error_plan_gone" {
			t.Errorf("got %q", r.Text)
		}
	})

	t.Run("unknown action kind", func(t *testing.T) {
		f := newFixture(t, stubIssuer{})
		f.seed(t)
		bogus := model.Action{Kind: "zz", UserID: user, ChannelID: channel, Minutes: 30}
		if _, err := f.facade.HandleAction(ctx, model.Claimant{ID: user}, bogus); !errors.Is(err, domain.ErrInvalidCallback) {
			t.Errorf("expected ErrInvalidCallback, got %v", err)
		}
	})
}

func TestOnboardingDialog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubIssuer{})

	r, err := f.facade.HandleAdminText(ctx, admin, usecase.AdminReply{Text: "hello"})
	if err != nil || r != nil {
		t.Fatalf("text without a prompt must be ignored, got %+v %v", r, err)
	}

	if _, err := f.facade.HandleAddChannel(ctx, admin); err != nil {
		t.Fatal(err)
	}
	r, _ = f.facade.HandleAdminText(ctx, admin, usecase.AdminReply{Text: "not a forward"})
	if r.Text != "error_not_forwarded" {
		t.Fatalf("got %q", r.Text)
	}

	r, err = f.facade.HandleAdminText(ctx, admin, usecase.AdminReply{ForwardedChatID: channel, ForwardedChatTitle: "Signals"})
	if err != nil || !strings.HasPrefix(r.Text, "channel_registered|Signals") || !strings.Contains(r.Text, "ask_plans|Signals|plans_none") {
		t.Fatalf("unexpected registration reply %+v %v", r, err)
	}

	r, _ = f.facade.HandleAdminText(ctx, admin, usecase.AdminReply{Text: "abc"})
	if r.Text != "invalid_plans" {
		t.Fatalf("got %q", r.Text)
	}

	r, _ = f.facade.HandleAdminText(ctx, admin, usecase.AdminReply{Text: "1:5, 43200:199"})
	if !strings.HasPrefix(r.Text, "plans_saved|Signals|") || !strings.HasSuffix(r.Text, "https://t.me/paywall_bot?start=-1001234567890") {
		t.Fatalf("unexpected save reply %q", r.Text)
	}

	r, _ = f.facade.HandleChannels(ctx, admin)
	if len(r.Buttons) != 2 || r.Buttons[0][0].Data != "edit:-1001234567890" {
		t.Errorf("unexpected channel list %+v", r.Buttons)
	}

	r, _ = f.facade.HandleCancel(ctx, admin)
	if r.Text != "cancel_nothing" {
		t.Errorf("got %q", r.Text)
	}
}

func TestHandleSetPlans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, stubIssuer{})
	f.seed(t)

	cases := []struct {
		caller int64
		args   string
		want   string
	}{
		{admin, "", "usage_setplans"},
		{admin, "-100 ", "usage_setplans"},
		{admin, "-100999 1:5", "error_channel_not_found"},
		{user, fmt.Sprintf("%d 1:5", channel), "error_not_channel_admin"},
		{admin, fmt.Sprintf("%d 1-5", channel), "invalid_plans"},
	}
	for _, c := range cases {
		r, err := f.facade.HandleSetPlans(ctx, c.caller, c.args)
		if err != nil || r.Text != c.want {
			t.Errorf("HandleSetPlans(%d, %q) = %+v %v, want %s", c.caller, c.args, r, err, c.want)
		}
	}

	r, _ := f.facade.HandleSetPlans(ctx, admin, fmt.Sprintf("%d 60:10", channel))
	if !strings.HasPrefix(r.Text, "plans_saved|Signals|") {
		t.Errorf("got %q", r.Text)
	}
}

func TestHandleSweep(t *testing.T) {
	f := newFixture(t, stubIssuer{})
	r, err := f.facade.HandleSweep(context.Background())
	if err != nil || !strings.HasPrefix(r.Text, "sweep_report|0|0|0|0|0|") {
		t.Errorf("got %+v %v", r, err)
	}
}

type cutOffSweeper struct{}

func (cutOffSweeper) Sweep(context.Context) (*usecase.SweepReport, error) {
	return &usecase.SweepReport{Scanned: 3, Removed: 2, Duration: time.Second}, context.DeadlineExceeded
}

func TestHandleSweep_ReportsPartialRun(t *testing.T) {
	f := newFixture(t, stubIssuer{})
	f.facade.Sweeper = cutOffSweeper{}
	r, err := f.facade.HandleSweep(context.Background())
	if err != nil || !strings.HasPrefix(r.Text, "sweep_report|3|2|0|0|0|") {
		t.Errorf("got %+v %v", r, err)
	}
}
