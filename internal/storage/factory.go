package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Config controls how the storage backends are opened.
type Config struct {
	// Driver selects the snapshot/job backend: memory, sqlite or postgres.
	Driver string
	DSN    string

	// TrackerDriver selects where refresh timestamps live: csv, db, pgx or
	// redis. db reuses the Storage opened from Driver; pgx connects to DSN
	// directly.
	TrackerDriver string
	TrackerPath   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	drv := cfg.Driver
	if drv == "" {
		drv = "memory"
	}
	switch drv {
	case "memory":
		slog.Info("storage: using in-memory backend")
		return NewMemory(), nil

	case "sqlite", "postgres":
		slog.Info("storage: using gorm backend", "driver", drv)
		st, err := NewGormStorage(drv, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("storage migrate: %w", err)
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", drv)
	}
}

// OpenTracker returns the TrackerStore selected by cfg.TrackerDriver. The
// returned store may also implement io.Closer.
func OpenTracker(ctx context.Context, cfg Config, st Storage) (TrackerStore, error) {
	drv := cfg.TrackerDriver
	if drv == "" {
		drv = "csv"
	}
	switch drv {
	case "csv":
		if cfg.TrackerPath == "" {
			return nil, fmt.Errorf("csv tracker requires a path")
		}
		return NewCSVTracker(cfg.TrackerPath), nil
	case "db":
		if st == nil {
			return nil, fmt.Errorf("db tracker requires an open storage backend")
		}
		return st, nil
	case "pgx":
		return OpenPgxTracker(ctx, cfg.DSN)
	case "redis":
		return OpenRedisTracker(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported tracker driver %q", drv)
	}
}
