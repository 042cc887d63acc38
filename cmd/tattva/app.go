package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tattva/tattva/internal/bus"
	"github.com/tattva/tattva/internal/cache"
	"github.com/tattva/tattva/internal/config"
	"github.com/tattva/tattva/internal/correlation"
	"github.com/tattva/tattva/internal/insight"
	"github.com/tattva/tattva/internal/metrics"
	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// app holds every long-lived dependency. Everything is built here and
// handed down explicitly; close releases it in reverse order.
type app struct {
	cfg *config.Config
	log *logger.Logger

	store      *observation.Store
	cache      cache.Cache
	bus        bus.Bus
	metrics    *metrics.Metrics
	finder     *correlation.Finder
	aggregator *insight.Aggregator
}

// loadConfig reads the config file named by --config and applies the
// logging flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("format")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if format != "" {
		cfg.Log.Format = format
	}

	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format), nil
}

// openStore connects to the observation store and migrates it when enabled.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*observation.Store, error) {
	store, err := observation.Open(ctx, cfg.Database, cfg.Correlation.Covariates, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store

	c, err := cache.New(cfg.Cache, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.cache = c

	b, err := bus.Open(cfg.Bus, a.metrics, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	a.bus = b
	if err := metrics.NewEventSubscriber(a.metrics, a.bus).SubscribeToEvents(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to subscribe metrics to events: %w", err)
	}

	a.finder = correlation.NewFinder(correlation.NewStoreComputer(store, log), correlation.FinderOptions{
		CacheKey: cfg.Cache.Key,
		CacheTTL: cfg.Cache.TTL(),
		Policy:   correlation.NewPolicy(cfg.Correlation.Thresholds),
		Cache:    a.cache,
		Bus:      a.bus,
		Metrics:  a.metrics,
		Logger:   log,
	})

	a.aggregator = insight.NewAggregator(store, a.finder, insight.Options{
		Covariates:      store.Covariates(),
		DefaultRadiusKm: cfg.Insight.DefaultRadiusKm,
		DefaultTopN:     cfg.Insight.DefaultTopN,
		MaxTopN:         cfg.Insight.MaxTopN,
		Bus:             a.bus,
		Metrics:         a.metrics,
		Logger:          log,
	})

	return a, nil
}

// close releases dependencies in reverse construction order. The bus closes
// first so in-flight handlers finish before the store goes away.
func (a *app) close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn("Error closing event bus", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("Error closing cache", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("Error closing observation store", "error", err)
		}
	}
	if a.metrics != nil {
		_ = a.metrics.Close()
	}
}
