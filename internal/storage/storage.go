package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreMissing means the tracker store does not exist yet.
	ErrStoreMissing = errors.New("storage: tracker store missing")
	// ErrStoreMalformed means the tracker store exists but lacks the expected
	// columns or holds values that cannot be parsed.
	ErrStoreMalformed = errors.New("storage: tracker store malformed")
)

// TrackerStore persists the last-successful-refresh time per resource. The
// whole mapping is read and written at once; there is no per-row update.
type TrackerStore interface {
	LoadTracker(ctx context.Context) ([]TrackerEntry, error)
	SaveTracker(ctx context.Context, entries []TrackerEntry) error
}

// SnapshotStore caches the output of dataset producers.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, resource string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

// Storage abstracts persistence for the tracker, dataset snapshots and
// scheduled job bookkeeping.
type Storage interface {
	TrackerStore
	SnapshotStore

	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
	GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error)

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}
