// Package app assembles the engine from configuration: stores, fetcher,
// collector, scheduler, alert engine, and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/alerts"
	"github.com/newspulse/sentinel/internal/api"
	"github.com/newspulse/sentinel/internal/archive"
	"github.com/newspulse/sentinel/internal/collector"
	"github.com/newspulse/sentinel/internal/config"
	collyfetcher "github.com/newspulse/sentinel/internal/fetcher/colly"
	"github.com/newspulse/sentinel/internal/id/uuid"
	"github.com/newspulse/sentinel/internal/keywords"
	"github.com/newspulse/sentinel/internal/logging"
	"github.com/newspulse/sentinel/internal/metrics"
	"github.com/newspulse/sentinel/internal/monitor"
	"github.com/newspulse/sentinel/internal/normalizer"
	"github.com/newspulse/sentinel/internal/notify"
	"github.com/newspulse/sentinel/internal/registry"
	"github.com/newspulse/sentinel/internal/scheduler"
	memorystorage "github.com/newspulse/sentinel/internal/storage/memory"
	pgstorage "github.com/newspulse/sentinel/internal/storage/postgres"
)

// App holds the assembled service graph.
type App struct {
	Cfg       config.Config
	Logger    *zap.Logger
	Registry  *registry.Registry
	Scheduler *scheduler.Scheduler
	Server    *api.Server

	closers []func()
}

// New loads configuration and wires every component. Callers own the App's
// lifecycle and must call Close.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	a := &App{Cfg: cfg, Logger: logger}
	a.closers = append(a.closers, func() {
		_ = logger.Sync()
	})

	reg, err := registry.Load(cfg.Sources.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load source catalog: %w", err)
	}
	a.Registry = reg
	logger.Info("source catalog loaded", zap.Int("sources", reg.Len()))

	clock := monitor.SystemClock{}
	ids := uuid.New()

	contentStore, alertStore, err := a.buildStores(ctx, clock)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := contentStore.EnsureTTL(ctx, cfg.Retention()); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure content retention: %w", err)
	}

	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var archiver monitor.Archiver
	if cfg.Archive.Enabled {
		store, err := archive.New(archive.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		archiver = store
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Collector.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, logger.Named("fetcher"))

	col := collector.New(
		collector.Config{Concurrency: cfg.Collector.Concurrency},
		fetcher,
		normalizer.New(logger.Named("normalizer")),
		contentStore,
		archiver,
		clock,
		ids,
		logger.Named("collector"),
	)

	engine := alerts.New(alertStore, publisher, ids, logger.Named("alerts"))
	if cfg.Alerts.SeedDefaults {
		if err := alerts.SeedDefaults(ctx, alertStore, clock, logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed default alert rules: %w", err)
		}
	}

	a.Scheduler = scheduler.New(scheduler.Config{
		HighInterval:        minutes(cfg.Scheduler.HighMinutes),
		MediumInterval:      minutes(cfg.Scheduler.MediumMinutes),
		LowInterval:         minutes(cfg.Scheduler.LowMinutes),
		FullInterval:        minutes(cfg.Scheduler.FullSweepMinutes),
		EvaluationInterval:  minutes(cfg.Scheduler.EvaluationMinutes),
		MaintenanceInterval: minutes(cfg.Scheduler.MaintenanceMinutes),
	}, col, reg, contentStore, alertStore, engine, clock, logger.Named("scheduler"))

	a.Server = api.NewServer(a.Scheduler, contentStore, alertStore,
		keywords.NewAggregator(), clock, cfg, logger.Named("api"))

	return a, nil
}

func (a *App) buildStores(ctx context.Context, clock monitor.Clock) (monitor.ContentStore, monitor.AlertStore, error) {
	switch a.Cfg.Store.Provider {
	case "postgres":
		pool, err := pgstorage.Connect(ctx, a.Cfg.Store.DSN, int32(a.Cfg.Store.MaxConns))
		if err != nil {
			return nil, nil, fmt.Errorf("connect store: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		alertStore := pgstorage.NewAlertStore(pool, a.Logger.Named("alertstore"))
		if err := alertStore.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return pgstorage.NewContentStore(pool, clock, a.Logger.Named("contentstore")), alertStore, nil
	default:
		return memorystorage.NewContentStore(clock), memorystorage.NewAlertStore(), nil
	}
}

func (a *App) buildPublisher(ctx context.Context) (monitor.Publisher, error) {
	if a.Cfg.Notify.Provider != "pubsub" {
		return notify.NewNoopPublisher(), nil
	}
	pub, err := notify.NewPubSubPublisher(ctx, a.Cfg.Notify.ProjectID, a.Cfg.Notify.TopicID, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := pub.Close(); err != nil {
			a.Logger.Warn("pubsub close failed", zap.Error(err))
		}
	})
	return pub, nil
}

// Close releases every resource in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
