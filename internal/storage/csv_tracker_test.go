package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestCSVTracker_MissingFile(t *testing.T) {
	c := NewCSVTracker(filepath.Join(t.TempDir(), "nope", "refresh_tracker.csv"))
	if _, err := c.LoadTracker(context.Background()); !errors.Is(err, ErrStoreMissing) {
		t.Fatalf("err = %v, want ErrStoreMissing", err)
	}
}

func TestCSVTracker_MissingColumns(t *testing.T) {
	for name, content := range map[string]string{
		"no timestamp": "resource_id,updated\nFX_rate_matrix.csv,2025-01-01T00:00:00Z\n",
		"no id":        "name,last_update\nx,2025-01-01T00:00:00Z\n",
		"empty":        "",
	} {
		path := writeTempFile(t, "tracker.csv", content)
		_, err := NewCSVTracker(path).LoadTracker(context.Background())
		if !errors.Is(err, ErrStoreMalformed) {
			t.Errorf("%s: err = %v, want ErrStoreMalformed", name, err)
		}
	}
}

func TestCSVTracker_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed", "refresh_tracker.csv")
	c := NewCSVTracker(path)

	ts1 := time.Date(2025, 6, 2, 23, 50, 0, 123456789, time.UTC)
	ts2 := time.Date(2025, 6, 3, 0, 10, 0, 0, time.FixedZone("CET", 3600))
	in := []TrackerEntry{
		{ResourceID: "us_yields.csv", LastUpdate: ts2},
		{ResourceID: "FX_rate_matrix.csv", LastUpdate: ts1},
	}
	if err := c.SaveTracker(ctx, in); err != nil {
		t.Fatalf("SaveTracker failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.HasPrefix(string(raw), "resource_id,last_update\n") {
		t.Errorf("unexpected header in %q", raw)
	}

	out, err := c.LoadTracker(ctx)
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ResourceID != "FX_rate_matrix.csv" || !out[0].LastUpdate.Equal(ts1) {
		t.Errorf("entry 0 = %+v", out[0])
	}
	if out[1].ResourceID != "us_yields.csv" || !out[1].LastUpdate.Equal(ts2) {
		t.Errorf("entry 1 = %+v", out[1])
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the tracker file, found %d entries", len(entries))
	}
}

func TestCSVTracker_LegacyHeaderAndBlankRows(t *testing.T) {
	content := "csv_name;,last_update;\n" +
		"FX_historical.csv,2025-06-02 23:50:00.123456\n" +
		"monetary_policy_check,\n" +
		"\n"
	path := writeTempFile(t, "refresh_tracker.csv", content)

	out, err := NewCSVTracker(path).LoadTracker(context.Background())
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("entries = %+v, want only FX_historical.csv", out)
	}
	want := time.Date(2025, 6, 2, 23, 50, 0, 123456000, time.Local)
	if !out[0].LastUpdate.Equal(want) {
		t.Errorf("LastUpdate = %v, want %v", out[0].LastUpdate, want)
	}
}

func TestCSVTracker_BadTimestampSkipsOnlyThatRow(t *testing.T) {
	content := "resource_id,last_update\n" +
		"FX_rate_matrix.csv,2025-06-02T09:00:00Z\n" +
		"stocks_snapshot.csv,garbage\n" +
		"us_yields.csv,2025-06-01T00:00:00Z\n"
	path := writeTempFile(t, "refresh_tracker.csv", content)

	out, err := NewCSVTracker(path).LoadTracker(context.Background())
	if err != nil {
		t.Fatalf("LoadTracker failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("entries = %+v, want FX_rate_matrix.csv and us_yields.csv", out)
	}
	if out[0].ResourceID != "FX_rate_matrix.csv" || !out[0].LastUpdate.Equal(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("entry 0 = %+v", out[0])
	}
	if out[1].ResourceID != "us_yields.csv" {
		t.Errorf("entry 1 = %+v", out[1])
	}
}
