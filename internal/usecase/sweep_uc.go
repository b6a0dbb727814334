package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

const sweepLockKey = "lock:expiry_sweep"

// SweepUseCase revokes access for lapsed subscriptions.
type SweepUseCase interface {
	Sweep(ctx context.Context) (*SweepReport, error)
}

// FailureClass separates platform refusals the sweeper expects to retry from bugs.
type FailureClass string

const (
	FailureExpected   FailureClass = "expected"
	FailureUnexpected FailureClass = "unexpected"
)

// SweepFailure is a subscription that stayed in the store because processing failed.
type SweepFailure struct {
	Subscription model.Subscription
	Class        FailureClass
	Err          error
}

// SweepReport summarises one pass.
type SweepReport struct {
	StartedAt  time.Time
	Duration   time.Duration
	Scanned    int
	Revoked    int
	Removed    int
	Renewed    int // revoked, but the row had been renewed before delete
	Expected   []SweepFailure
	Unexpected []SweepFailure
}

func (r *SweepReport) Failed() int { return len(r.Expected) + len(r.Unexpected) }

type sweepUC struct {
	channels  repository.ChannelRepository
	subs      repository.SubscriptionRepository
	enforcer  adapter.MembershipEnforcer
	notifier  adapter.Notifier
	locker    Locker
	tr        Translator
	batchSize int
	lockTTL   time.Duration
	now       Clock
	log       *zerolog.Logger
}

func NewSweepUseCase(
	channels repository.ChannelRepository,
	subs repository.SubscriptionRepository,
	enforcer adapter.MembershipEnforcer,
	notifier adapter.Notifier,
	locker Locker,
	tr Translator,
	batchSize int,
	lockTTL time.Duration,
	clock Clock,
	logger *zerolog.Logger,
) *sweepUC {
	if clock == nil {
		clock = systemClock
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &sweepUC{
		channels:  channels,
		subs:      subs,
		enforcer:  enforcer,
		notifier:  notifier,
		locker:    locker,
		tr:        tr,
		batchSize: batchSize,
		lockTTL:   lockTTL,
		now:       clock,
		log:       logger,
	}
}

// Sweep processes every subscription whose expiry is at or before now, in pages of
// batchSize rows.
// Per row: revoke, notify (best-effort), then delete only if the expiry is unchanged.
// A failed revoke keeps the row for the next pass. Returns domain.ErrSweepInProgress
// when another sweep holds the lock. A pass is cut off after lockTTL and returns the
// partial report with context.DeadlineExceeded.
func (s *sweepUC) Sweep(ctx context.Context) (*SweepReport, error) {
	defer logging.TraceDuration(s.log, "SweepUC.Sweep")()

	// a pass never outlives its lock, whichever caller started it
	ctx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	if s.locker != nil {
		token, err := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrSweepInProgress) {
				metrics.IncSweepRun("skipped")
			}
			return nil, err
		}
		defer func() {
			// release on a fresh context so a cancelled sweep still frees the lock
			uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.locker.Unlock(uctx, sweepLockKey, token); err != nil {
				s.log.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	began := time.Now()
	report := &SweepReport{StartedAt: s.now()}
	names := make(map[int64]string)
	var after *repository.ExpiredCursor
	for ctx.Err() == nil {
		// rows kept by a failed revoke sit behind the cursor, so they cannot starve later pages
		page, err := s.subs.ListExpired(ctx, report.StartedAt, after, s.batchSize)
		if err != nil {
			metrics.IncSweepRun("error")
			return nil, fmt.Errorf("list expired: %w", err)
		}
		for _, sub := range page {
			if ctx.Err() != nil {
				break
			}
			report.Scanned++
			s.process(ctx, sub, names, report)
		}
		if len(page) == 0 || s.batchSize <= 0 || len(page) < s.batchSize {
			break
		}
		after = repository.CursorAt(page[len(page)-1])
	}

	report.Duration = time.Since(began)
	metrics.IncSubscriptionsExpired(report.Removed)
	metrics.AddSweepFailures(string(FailureExpected), len(report.Expected))
	metrics.AddSweepFailures(string(FailureUnexpected), len(report.Unexpected))
	metrics.ObserveSweepDuration(report.Duration)
	metrics.IncSweepRun("ok")
	if n, err := s.subs.CountActive(ctx, s.now()); err == nil {
		metrics.SetSubscriptionsActive(n)
	}

	if len(report.Unexpected) > 0 {
		ev := s.log.Error().Int("count", len(report.Unexpected))
		for _, f := range report.Unexpected {
			ev = ev.AnErr(strconv.FormatInt(f.Subscription.UserID, 10)+"@"+strconv.FormatInt(f.Subscription.ChannelID, 10), f.Err)
		}
		ev.Msg("sweep hit unexpected failures")
	}
	s.log.Info().
		Int("scanned", report.Scanned).
		Int("removed", report.Removed).
		Int("renewed", report.Renewed).
		Int("expected_failures", len(report.Expected)).
		Int("unexpected_failures", len(report.Unexpected)).
		Dur("duration", report.Duration).
		Msg("sweep finished")
	return report, ctx.Err()
}

func (s *sweepUC) process(ctx context.Context, sub model.Subscription, names map[int64]string, report *SweepReport) {
	log := s.log.With().Int64("tg_id", sub.UserID).Int64("channel_id", sub.ChannelID).Logger()

	if err := s.enforcer.Revoke(ctx, sub.ChannelID, sub.UserID); err != nil {
		s.fail(&log, sub, err, report)
		return
	}
	report.Revoked++

	text := s.tr.T("subscription_expired", s.channelName(ctx, sub.ChannelID, names), sub.ChannelID)
	if err := s.notifier.SendMessage(ctx, adapter.SendMessageParams{ChatID: sub.UserID, Text: text}); err != nil {
		log.Warn().Err(err).Msg("failed to notify user about expiry")
	}

	deleted, err := s.subs.Delete(ctx, sub.UserID, sub.ChannelID, sub.ExpiresAt)
	switch {
	case err != nil:
		s.fail(&log, sub, fmt.Errorf("delete subscription: %w", err), report)
	case deleted:
		report.Removed++
		log.Info().Msg("subscription expired and access revoked")
	default:
		report.Renewed++
		log.Warn().Msg("subscription renewed during sweep, row kept")
	}
}

func (s *sweepUC) fail(log *zerolog.Logger, sub model.Subscription, err error, report *SweepReport) {
	f := SweepFailure{Subscription: sub, Err: err}
	if errors.Is(err, domain.ErrEnforcer) {
		f.Class = FailureExpected
		report.Expected = append(report.Expected, f)
		log.Warn().Err(err).Msg("revoke refused by platform, will retry next sweep")
		return
	}
	f.Class = FailureUnexpected
	report.Unexpected = append(report.Unexpected, f)
	log.Error().Err(err).Msg("unexpected sweep failure, will retry next sweep")
}

func (s *sweepUC) channelName(ctx context.Context, channelID int64, cache map[int64]string) string {
	if name, ok := cache[channelID]; ok {
		return name
	}
	name := strconv.FormatInt(channelID, 10)
	if ch, err := s.channels.FindByID(ctx, channelID); err == nil {
		name = ch.Name
	}
	cache[channelID] = name
	return name
}
