package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/bher20/marketdash/internal/alerting"
	"github.com/bher20/marketdash/internal/config"
	"github.com/bher20/marketdash/internal/cron"
	"github.com/bher20/marketdash/internal/datasets"
	"github.com/bher20/marketdash/internal/fx"
	"github.com/bher20/marketdash/internal/market"
	"github.com/bher20/marketdash/internal/metrics"
	"github.com/bher20/marketdash/internal/migrate"
	"github.com/bher20/marketdash/internal/refresh"
	"github.com/bher20/marketdash/internal/storage"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    storage.Storage
	tracker  storage.TrackerStore
	orch     *refresh.Orchestrator
	registry *datasets.Registry
	job      *cron.Job
	closers  []io.Closer
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.AutoMigrate && cfg.DBDriver != "memory" {
		if err := migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN); err != nil {
			return nil, fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	tracker, err := storage.OpenTracker(ctx, storage.Config{
		Driver:        cfg.DBDriver,
		DSN:           cfg.DBDSN,
		TrackerDriver: cfg.TrackerDriver,
		TrackerPath:   cfg.TrackerPath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	}, st)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open tracker: %w", err)
	}
	a.tracker = tracker
	if c, ok := tracker.(io.Closer); ok && tracker != storage.TrackerStore(st) {
		a.closers = append(a.closers, c)
	}

	var yahoo, fred market.SeriesSource = market.NewYahooClient("", nil, logger), market.NewFREDClient("", nil, logger)
	if cfg.SeriesCacheTTL > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("series cache disabled, redis unreachable", "addr", cfg.RedisAddr, "err", err)
			rdb.Close()
		} else {
			cache := market.NewRedisCache(rdb, "")
			yahoo = market.NewCachedSource(yahoo, cache, cfg.SeriesCacheTTL, logger)
			fred = market.NewCachedSource(fred, cache, cfg.SeriesCacheTTL, logger)
			a.closers = append(a.closers, rdb)
		}
	}

	pairs, err := datasets.ParseFXPairs(cfg.FXPairsJSON)
	if err != nil {
		a.close()
		return nil, err
	}
	builder, err := datasets.NewFXBuilder(pairs)
	if err != nil {
		a.close()
		return nil, err
	}

	a.registry, err = datasets.New(datasets.Config{
		Yahoo:  yahoo,
		FRED:   fred,
		Store:  st,
		FX:     builder,
		Logger: logger,
		OnMatrix: func(m fx.Matrix, _ []fx.Gap) {
			metrics.FXUndefinedCells.Set(float64(m.Undefined()))
		},
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.orch, err = refresh.New(refresh.Config{Store: tracker, Logger: logger})
	if err != nil {
		a.close()
		return nil, err
	}

	a.job, err = cron.NewJob(cron.JobConfig{
		Runner:  a.orch,
		Tasks:   a.registry.Tasks,
		Jobs:    st,
		Alerter: alerting.NewAlerter(alerting.DefaultAlertConfig(), logger),
		Logger:  logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
