package migrate

import (
	"context"
	"path/filepath"
	"testing"
)

func TestUpDownSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "marketdash.db")

	if err := Up(ctx, "sqlite", dsn); err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	v, err := Version(ctx, "sqlite", dsn)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}

	// Re-running is a no-op.
	if err := Up(ctx, "sqlite", dsn); err != nil {
		t.Fatalf("second Up failed: %v", err)
	}

	if err := Down(ctx, "sqlite", dsn); err != nil {
		t.Fatalf("Down failed: %v", err)
	}
	if v, _ := Version(ctx, "sqlite", dsn); v != 1 {
		t.Errorf("version after one Down = %d, want 1", v)
	}
	if err := Down(ctx, "sqlite", dsn); err != nil {
		t.Fatalf("second Down failed: %v", err)
	}
	if v, _ := Version(ctx, "sqlite", dsn); v != 0 {
		t.Errorf("version after Down = %d, want 0", v)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if err := Up(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
