package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"telegram-channel-subscription/internal/application"
	"telegram-channel-subscription/internal/config"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
	tele "telegram-channel-subscription/internal/infra/adapters/telegram"
	"telegram-channel-subscription/internal/infra/db/memory"
	mg "telegram-channel-subscription/internal/infra/db/mongo"
	pg "telegram-channel-subscription/internal/infra/db/postgres"
	httpapi "telegram-channel-subscription/internal/infra/http"
	"telegram-channel-subscription/internal/infra/i18n"
	"telegram-channel-subscription/internal/infra/instance"
	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/infra/metrics"
	"telegram-channel-subscription/internal/infra/qrcode"
	red "telegram-channel-subscription/internal/infra/redis"
	"telegram-channel-subscription/internal/infra/sched"
	"telegram-channel-subscription/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const promptTTL = 15 * time.Minute

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the expiry sweeper and the health/metrics server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(flags.configPath, flags.dev)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

// stores is what the selected storage driver provides.
type stores struct {
	channels repository.ChannelRepository
	subs     repository.SubscriptionRepository
	checks   map[string]httpapi.Check
	tasks    []func(ctx context.Context) error
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*stores, error) {
	s := &stores{checks: map[string]httpapi.Check{}}

	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx, pool, logger); err != nil {
				s.close()
				return nil, err
			}
		}
		s.channels = pg.NewChannelRepo(pool)
		s.subs = pg.NewSubscriptionRepo(pool)
		s.checks["postgres"] = pool.Ping
		s.tasks = append(s.tasks, func(ctx context.Context) error {
			return pg.ReportPoolStats(ctx, pool, 15*time.Second)
		})

	case "mongo":
		client, db, err := mg.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(shutdownCtx)
		})
		if err := mg.EnsureIndexes(ctx, db); err != nil {
			s.close()
			return nil, err
		}
		s.channels = mg.NewChannelRepo(db)
		s.subs = mg.NewSubscriptionRepo(db)
		s.checks["mongo"] = mg.Healthcheck(client)

	case "memory":
		logger.Warn().Msg("in-memory storage: subscriptions are lost on restart")
		s.channels = memory.NewChannelRepo()
		s.subs = memory.NewSubscriptionRepo()

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return s, nil
}

// coordination is the Redis-backed state, or its in-process fallback.
type coordination struct {
	prompts repository.PromptRepository
	locker  usecase.Locker
	limiter tele.RateLimiter
}

func openCoordination(ctx context.Context, cfg *config.Config, s *stores, logger *zerolog.Logger) (*coordination, error) {
	if cfg.Redis.URL == "" {
		logger.Info().Msg("redis not configured, using in-process prompts and sweep lock")
		return &coordination{
			prompts: memory.NewPromptRepo(promptTTL),
			locker:  memory.NewLocker(),
		}, nil
	}

	client, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = client.Close() })
	s.checks["redis"] = client.Ping
	s.channels = red.NewChannelRepoCacheDecorator(s.channels, client, cfg.Redis.TTL, logger)

	return &coordination{
		prompts: red.NewPromptRepo(client),
		locker:  red.NewLocker(client),
		limiter: red.NewRateLimiter(client),
	}, nil
}

// platformPorts are the chat platform capabilities the use cases need.
type platformPorts struct {
	notifier adapter.Notifier
	issuer   adapter.InviteIssuer
	enforcer adapter.MembershipEnforcer
	platform *tele.Platform // nil in noop mode
}

func openPlatform(cfg *config.Config, logger *zerolog.Logger) (*platformPorts, error) {
	if cfg.Bot.Mode == "noop" {
		noop := tele.NewNoopBotAdapter(logger)
		return &platformPorts{notifier: noop, issuer: noop, enforcer: noop}, nil
	}
	p, err := tele.NewPlatform(cfg.Bot.Token, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Bot.Username == "" {
		cfg.Bot.Username = p.Username()
	}
	return &platformPorts{notifier: p, issuer: p, enforcer: p, platform: p}, nil
}

func serve(cfg *config.Config) error {
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	guard, err := instance.Acquire(cfg.LockFile)
	if err != nil {
		return fmt.Errorf("single instance: %w", err)
	}
	defer func() { _ = guard.Release() }()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	coord, err := openCoordination(ctx, cfg, st, logger)
	if err != nil {
		return err
	}

	ports, err := openPlatform(cfg, logger)
	if err != nil {
		return err
	}

	translator, err := i18n.Default()
	if err != nil {
		return err
	}

	// ---- Use cases ----
	catalogUC := usecase.NewCatalogUseCase(st.channels, logger)
	lifecycleUC := usecase.NewLifecycleUseCase(st.channels, st.subs, ports.issuer, ports.notifier,
		qrcode.NewGenerator(), translator, cfg.Payment, nil, logger)
	onboardingUC := usecase.NewOnboardingUseCase(catalogUC, coord.prompts, cfg.Bot.Username, nil, logger)
	sweepUC := usecase.NewSweepUseCase(st.channels, st.subs, ports.enforcer, ports.notifier, coord.locker,
		translator, cfg.Sweeper.BatchSize, cfg.Sweeper.Timeout, nil, logger)

	facade := application.NewBotFacade(catalogUC, lifecycleUC, onboardingUC, sweepUC, translator, cfg.Payment.Currency, logger)

	g, gctx := errgroup.WithContext(ctx)

	for _, task := range st.tasks {
		g.Go(func() error { return task(gctx) })
	}

	if ports.platform != nil {
		bot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, ports.platform, facade, coord.limiter, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return bot.StartPolling(gctx) })
	} else {
		logger.Warn().Msg("bot.mode=noop: not polling Telegram")
	}

	expiry := sched.NewExpiryWorker(cfg.Sweeper.Interval, cfg.Sweeper.Timeout, sweepUC, logger)
	g.Go(func() error { return expiry.Run(gctx) })

	srv := httpapi.NewServer(cfg.HTTP.Port, st.checks, logger)
	g.Go(func() error { return srv.Run(gctx) })

	logger.Info().
		Str("version", version).
		Str("storage", cfg.Storage.Driver).
		Str("bot", cfg.Bot.Username).
		Msg("service started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("service stopped with error")
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
