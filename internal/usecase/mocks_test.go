// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"telegram-channel-subscription/internal/config"
	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/infra/db/memory"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

// fakeClock is a controllable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// echoTranslator renders "key|arg1|arg2" so tests can assert on arguments.
type echoTranslator struct{}

func (echoTranslator) T(key string, args ...any) string {
	parts := []string{key}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, "|")
}

type inviteCall struct {
	ChannelID int64
	ExpiresAt time.Time
}

type fakeIssuer struct {
	mu    sync.Mutex
	calls []inviteCall
	err   error
}

func (f *fakeIssuer) CreateInvite(_ context.Context, channelID int64, expiresAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inviteCall{channelID, expiresAt})
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("https://t.me/+invite%d", len(f.calls)), nil
}

type revokeCall struct {
	ChannelID int64
	UserID    int64
}

type fakeEnforcer struct {
	mu    sync.Mutex
	calls []revokeCall
	// errFor returns the error to fail a given user with, nil for success.
	errFor func(userID int64) error
}

func (f *fakeEnforcer) Revoke(_ context.Context, channelID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, revokeCall{channelID, userID})
	if f.errFor != nil {
		return f.errFor(userID)
	}
	return nil
}

func (f *fakeEnforcer) count(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []adapter.SendMessageParams
	err  error
}

func (f *fakeNotifier) SendMessage(_ context.Context, p adapter.SendMessageParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return f.err
}

func (f *fakeNotifier) to(chatID int64) []adapter.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []adapter.SendMessageParams
	for _, p := range f.sent {
		if p.ChatID == chatID {
			out = append(out, p)
		}
	}
	return out
}

type fakeQR struct {
	content string
	err     error
}

func (f *fakeQR) Generate(content string, size int) ([]byte, error) {
	f.content = content
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

// failingSubRepo wraps the memory repo and fails selected operations.
type failingSubRepo struct {
	*memory.SubscriptionRepo
	deleteErr error
}

func (f *failingSubRepo) Delete(ctx context.Context, userID, channelID int64, expiresAt time.Time) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return f.SubscriptionRepo.Delete(ctx, userID, channelID, expiresAt)
}

var errPlatformDown = errors.New("Bad Request: not enough rights to manage chat")

func enforcerRefusal(channelID, userID int64) error {
	return domain.NewEnforcerError("ban", channelID, userID, errPlatformDown)
}

// env bundles the in-memory wiring used by the lifecycle and sweep tests.
type env struct {
	clock    *fakeClock
	channels *memory.ChannelRepo
	subs     *memory.SubscriptionRepo
	prompts  *memory.PromptRepo
	issuer   *fakeIssuer
	enforcer *fakeEnforcer
	notifier *fakeNotifier
	qr       *fakeQR

	catalog    *catalogUC
	lifecycle  *lifecycleUC
	sweeper    *sweepUC
	onboarding *onboardingUC
}

const (
	testAdmin   int64 = 1111
	testUser    int64 = 5555
	testChannel int64 = -1001234567890
)

func newEnv() *env {
	e := &env{
		clock:    newFakeClock(),
		channels: memory.NewChannelRepo(),
		subs:     memory.NewSubscriptionRepo(),
		prompts:  memory.NewPromptRepo(15 * time.Minute),
		issuer:   &fakeIssuer{},
		enforcer: &fakeEnforcer{},
		notifier: &fakeNotifier{},
		qr:       &fakeQR{},
	}
	log := newTestLogger()
	pay := config.PaymentConfig{UPIID: "shop@upi", Payee: "Shop Owner", Currency: "INR", Note: "Subscription", QRSize: 256}
	e.catalog = NewCatalogUseCase(e.channels, log)
	e.lifecycle = NewLifecycleUseCase(e.channels, e.subs, e.issuer, e.notifier, e.qr, echoTranslator{}, pay, e.clock.Now, log)
	e.sweeper = NewSweepUseCase(e.channels, e.subs, e.enforcer, e.notifier, memory.NewLocker(), echoTranslator{}, 100, time.Minute, e.clock.Now, log)
	e.onboarding = NewOnboardingUseCase(e.catalog, e.prompts, "paywall_bot", e.clock.Now, log)
	return e
}
