package main

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/buffcal/internal/adapters/calendar"
	"github.com/okian/buffcal/internal/adapters/repository"
	service "github.com/okian/buffcal/internal/app"
	"github.com/okian/buffcal/internal/config"
	"github.com/okian/buffcal/internal/domain/dedupe"
	"github.com/okian/buffcal/internal/domain/parse"
)

// openStore opens the configured idempotency store. The returned close func
// is never nil.
func openStore(ctx context.Context, cfg *config.Config) (dedupe.Store, func() error, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		s, err := repository.NewSQLiteStore(ctx, cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreJSON:
		s, err := repository.NewJSONStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: store_backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
	}
}

// openCalendar builds the configured calendar backend.
func openCalendar(ctx context.Context, cfg *config.Config) (service.Calendar, error) {
	switch cfg.CalendarBackend {
	case config.CalendarGoogle:
		return calendar.NewGoogle(ctx, cfg.CalendarID, cfg.GoogleCredentials)
	case config.CalendarICS:
		return calendar.NewICSFile(ctx, cfg.ICSPath)
	case config.CalendarMemory:
		return calendar.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: calendar_backend %q", config.ErrInvalidConfig, cfg.CalendarBackend)
	}
}

// newParser builds the announcement parser for the configured timezone and
// categories.
func newParser(cfg *config.Config, loc *time.Location) *parse.Parser {
	opts := []parse.Option{parse.WithLocation(loc)}
	if len(cfg.Categories) > 0 {
		opts = append(opts, parse.WithCategories(parse.CategoriesFromMap(cfg.Categories)))
	}
	return parse.New(opts...)
}

// serviceOptions maps config onto service options.
func serviceOptions(cfg *config.Config) []service.Option {
	return []service.Option{
		service.WithChannelID(cfg.ChannelID),
		service.WithRetention(cfg.Retention),
		service.WithSyncInterval(cfg.SyncInterval),
		service.WithCatchUp(cfg.CatchUpWindow, cfg.CatchUpLimit),
		service.WithReconcileHorizon(cfg.ReconcileHorizon),
		service.WithQueueSize(cfg.QueueSize),
		service.WithWorkerCount(cfg.WorkerCount),
	}
}
