package sched

import (
	"context"
	"errors"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/usecase"

	"github.com/rs/zerolog"
)

// ExpiryWorker runs the sweep once at start and then on every tick.
type ExpiryWorker struct {
	interval time.Duration
	timeout  time.Duration
	sweepUC  usecase.SweepUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval, timeout time.Duration, sweepUC usecase.SweepUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		timeout:  timeout,
		sweepUC:  sweepUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	sctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	report, err := w.sweepUC.Sweep(sctx)
	switch {
	case errors.Is(err, domain.ErrSweepInProgress):
		w.log.Info().Msg("sweep already running, skipping tick")
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutting down
	case err != nil:
		w.log.Error().Err(err).Msg("expiry sweep failed")
	}
	if report != nil && report.Removed > 0 {
		w.log.Info().Int("count", report.Removed).Msg("expired subscriptions revoked")
	}
}
