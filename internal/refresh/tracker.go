package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/bher20/marketdash/internal/storage"
)

// Tracker is the in-memory view of the last successful refresh per resource.
type Tracker struct {
	last map[string]time.Time
}

// NewTracker returns an empty tracker: every resource is never refreshed.
func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]time.Time)}
}

// TrackerFromEntries builds a tracker from persisted rows. Later rows for
// the same id only win if they are newer.
func TrackerFromEntries(entries []storage.TrackerEntry) *Tracker {
	t := NewTracker()
	for _, e := range entries {
		if e.ResourceID == "" || e.LastUpdate.IsZero() {
			continue
		}
		t.MarkRefreshed(e.ResourceID, e.LastUpdate)
	}
	return t
}

// Get returns the last refresh time of id.
func (t *Tracker) Get(id string) (time.Time, bool) {
	ts, ok := t.last[id]
	return ts, ok
}

// MarkRefreshed records a successful refresh. Timestamps never move
// backwards.
func (t *Tracker) MarkRefreshed(id string, ts time.Time) {
	if prev, ok := t.last[id]; ok && ts.Before(prev) {
		return
	}
	t.last[id] = ts
}

// Len reports the number of tracked resources.
func (t *Tracker) Len() int { return len(t.last) }

// Entries returns the mapping sorted by resource id.
func (t *Tracker) Entries() []storage.TrackerEntry {
	out := make([]storage.TrackerEntry, 0, len(t.last))
	for id, ts := range t.last {
		out = append(out, storage.TrackerEntry{ResourceID: id, LastUpdate: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out
}

// Due is IsDue against this tracker's record for id.
func (t *Tracker) Due(id string, now time.Time, mode Mode) bool {
	if ts, ok := t.last[id]; ok {
		return IsDue(&ts, now, mode)
	}
	return IsDue(nil, now, mode)
}

// LoadTracker reads the persisted tracker. A missing or malformed store
// yields an empty tracker; any other error is returned.
func LoadTracker(ctx context.Context, store storage.TrackerStore, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := store.LoadTracker(ctx)
	switch {
	case errors.Is(err, storage.ErrStoreMissing):
		logger.Info("tracker not found, starting empty")
		return NewTracker(), nil
	case errors.Is(err, storage.ErrStoreMalformed):
		logger.Warn("tracker malformed, starting empty", "err", err)
		return NewTracker(), nil
	case err != nil:
		return nil, err
	}
	return TrackerFromEntries(entries), nil
}

// Save writes the whole mapping back to store.
func (t *Tracker) Save(ctx context.Context, store storage.TrackerStore) error {
	return store.SaveTracker(ctx, t.Entries())
}
