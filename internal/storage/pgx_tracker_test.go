package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

// Runs only against a live postgres, e.g.
// MARKETDASH_TEST_PG_DSN=postgres://postgres@localhost:5432/marketdash_test?sslmode=disable
func TestPgxTracker_RoundTrip(t *testing.T) {
	dsn := os.Getenv("MARKETDASH_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("MARKETDASH_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	tr, err := OpenPgxTracker(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPgxTracker: %v", err)
	}
	defer tr.Close()
	if _, err := tr.pool.Exec(ctx, `DROP TABLE IF EXISTS refresh_tracker`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	if _, err := tr.LoadTracker(ctx); err != ErrStoreMissing {
		t.Fatalf("LoadTracker on missing table = %v, want ErrStoreMissing", err)
	}

	ts := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	in := []TrackerEntry{{ResourceID: "FX_rate_matrix.csv", LastUpdate: ts}, {ResourceID: "us_yields.csv", LastUpdate: ts.Add(-time.Hour)}}
	if err := tr.SaveTracker(ctx, in); err != nil {
		t.Fatalf("SaveTracker: %v", err)
	}
	if err := tr.SaveTracker(ctx, in[:1]); err != nil {
		t.Fatalf("second SaveTracker: %v", err)
	}
	got, err := tr.LoadTracker(ctx)
	if err != nil {
		t.Fatalf("LoadTracker: %v", err)
	}
	if len(got) != 1 || got[0].ResourceID != "FX_rate_matrix.csv" || !got[0].LastUpdate.Equal(ts) {
		t.Errorf("got %+v", got)
	}
}
