package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/okian/buffcal/internal/adapters/chat"
	"github.com/okian/buffcal/internal/adapters/http/api"
	service "github.com/okian/buffcal/internal/app"
	"github.com/okian/buffcal/internal/config"
	"github.com/okian/buffcal/internal/domain/dedupe"
	"github.com/okian/buffcal/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> legacy env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "bot stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the bot and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn(ctx, "failed to close store", logger.Error(err))
		}
	}()
	tracker := dedupe.NewTracker(ctx, dedupe.WithStore(store))

	cal, err := openCalendar(ctx, cfg)
	if err != nil {
		return err
	}

	discord, err := chat.NewDiscord(cfg.DiscordToken, cfg.ChannelID)
	if err != nil {
		return err
	}

	svc, err := service.New(ctx, append(serviceOptions(cfg),
		service.WithLogger(log.Named("service")),
		service.WithCalendar(cal),
		service.WithMessageSource(discord),
		service.WithTracker(tracker),
		service.WithParser(newParser(cfg, loc)),
	)...)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service shutdown failed", logger.Error(err))
		}
	}()

	if err := discord.Open(ctx, svc); err != nil {
		return err
	}
	defer func() {
		if err := discord.Close(); err != nil {
			log.Warn(ctx, "failed to close discord session", logger.Error(err))
		}
	}()

	log.Info(ctx, "buff calendar bot running",
		logger.String("calendar_backend", cfg.CalendarBackend),
		logger.String("store_backend", cfg.StoreBackend),
		logger.String("timezone", loc.String()),
		logger.String("addr", cfg.Addr),
	)

	// The ops server returns once ctx is cancelled.
	if err := api.NewServer(svc).Run(ctx, cfg.Addr); err != nil {
		return err
	}
	log.Info(ctx, "shutting down...")
	return nil
}
