package market

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mapCache struct {
	m    map[string][]byte
	fail bool
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.fail {
		return nil, false, errors.New("cache down")
	}
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if c.fail {
		return errors.New("cache down")
	}
	c.m[key] = val
	return nil
}

type countingSource struct {
	n   int
	err error
}

func (s *countingSource) Series(ctx context.Context, id string, r Range) ([]Point, error) {
	s.n++
	if s.err != nil {
		return nil, s.err
	}
	return []Point{{Time: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), Value: 1.5}}, nil
}

func TestCachedSource_HitsCacheSecondTime(t *testing.T) {
	src := &countingSource{}
	c := NewCachedSource(src, &mapCache{m: map[string][]byte{}}, time.Minute, nil)
	for i := 0; i < 2; i++ {
		pts, err := c.Series(context.Background(), "EURUSD=X", SnapshotRange)
		if err != nil || len(pts) != 1 || pts[0].Value != 1.5 {
			t.Fatalf("call %d: %v, %v", i, pts, err)
		}
	}
	if src.n != 1 {
		t.Errorf("upstream called %d times, want 1", src.n)
	}
	if _, err := c.Series(context.Background(), "EURUSD=X", HistoryRange); err != nil || src.n != 2 {
		t.Errorf("different range should miss the cache: n=%d err=%v", src.n, err)
	}
}

func TestCachedSource_CacheFailureFallsThrough(t *testing.T) {
	src := &countingSource{}
	c := NewCachedSource(src, &mapCache{fail: true}, time.Minute, nil)
	if _, err := c.Series(context.Background(), "JPY=X", SnapshotRange); err != nil {
		t.Fatalf("Series: %v", err)
	}

	src.err = errors.New("boom")
	if _, err := c.Series(context.Background(), "JPY=X", SnapshotRange); err == nil {
		t.Errorf("upstream errors must not be cached over")
	}
}
