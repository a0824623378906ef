package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bher20/marketdash/internal/metrics"
)

// undefinedColumn is the postgres SQLSTATE for a missing column.
const undefinedColumn = "42703"

// PgxTracker keeps the refresh tracker in postgres through a pgx pool,
// without going through gorm.
type PgxTracker struct {
	pool *pgxpool.Pool
}

func OpenPgxTracker(ctx context.Context, dsn string) (*PgxTracker, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/marketdash?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx tracker ping: %w", err)
	}
	return &PgxTracker{pool: pool}, nil
}

func (s *PgxTracker) Close() error {
	s.pool.Close()
	return nil
}

func (s *PgxTracker) reportPool() {
	st := s.pool.Stat()
	metrics.UpdateDBPoolMetrics("pgx", float64(st.TotalConns()), float64(st.IdleConns()), float64(st.AcquiredConns()), st.AcquireCount())
}

func (s *PgxTracker) LoadTracker(ctx context.Context) ([]TrackerEntry, error) {
	defer s.reportPool()

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass('refresh_tracker') IS NOT NULL`).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrStoreMissing
	}

	rows, err := s.pool.Query(ctx, `SELECT resource_id, last_update FROM refresh_tracker ORDER BY resource_id`)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedColumn {
			return nil, fmt.Errorf("%w: %s", ErrStoreMalformed, pgErr.Message)
		}
		return nil, err
	}
	defer rows.Close()

	var out []TrackerEntry
	for rows.Next() {
		var id string
		var ts *time.Time
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreMalformed, err)
		}
		if ts == nil {
			continue
		}
		out = append(out, TrackerEntry{ResourceID: id, LastUpdate: *ts})
	}
	return out, rows.Err()
}

// SaveTracker replaces the table contents in one transaction, creating the
// table on first use.
func (s *PgxTracker) SaveTracker(ctx context.Context, entries []TrackerEntry) error {
	defer s.reportPool()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS refresh_tracker (
				resource_id TEXT PRIMARY KEY,
				last_update TIMESTAMPTZ
			)`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM refresh_tracker`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(`INSERT INTO refresh_tracker (resource_id, last_update) VALUES ($1, $2)`, e.ResourceID, e.LastUpdate)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
