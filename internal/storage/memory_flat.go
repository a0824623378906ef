package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu      sync.RWMutex
	tracker map[string]time.Time
	loaded  bool
	snaps   map[string]Snapshot
	jobs    map[string]ScheduledJob
}

// NewMemory returns an empty MemoryStorage. Its tracker reports
// ErrStoreMissing until the first SaveTracker.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		tracker: make(map[string]time.Time),
		snaps:   make(map[string]Snapshot),
		jobs:    make(map[string]ScheduledJob),
	}
}

// NewMemoryWithEntries returns a MemoryStorage whose tracker is preloaded.
func NewMemoryWithEntries(list []TrackerEntry) *MemoryStorage {
	m := NewMemory()
	for _, e := range list {
		m.tracker[e.ResourceID] = e.LastUpdate
	}
	m.loaded = true
	return m
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) LoadTracker(ctx context.Context) ([]TrackerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loaded {
		return nil, ErrStoreMissing
	}
	out := make([]TrackerEntry, 0, len(m.tracker))
	for id, ts := range m.tracker {
		out = append(out, TrackerEntry{ResourceID: id, LastUpdate: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func (m *MemoryStorage) SaveTracker(ctx context.Context, entries []TrackerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		next[e.ResourceID] = e.LastUpdate
	}
	m.tracker = next
	m.loaded = true
	return nil
}

func (m *MemoryStorage) GetSnapshot(ctx context.Context, resource string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snaps[resource]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (m *MemoryStorage) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	m.snaps[snap.Resource] = snap
	return nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := 0
	if success {
		status = 1
	}
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return nil
}

func (m *MemoryStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[name]
	if !ok {
		return nil, nil
	}
	return &j, nil
}
