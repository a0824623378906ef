package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"refresh": false, "worker": false, "serve": false, "migrate": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing %s command", name)
		}
	}
}

func TestMigrateRejectsUnknownAction(t *testing.T) {
	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"migrate", "sideways"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error for unknown migrate action")
	}
}

func TestRefreshStatusOnEmptyTracker(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MARKETDASH_SERIES_CACHE_TTL", "")
	t.Setenv("MARKETDASH_AUTO_MIGRATE", "false")
	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{
		"--db-driver", "sqlite",
		"--db-dsn", filepath.Join(dir, "marketdash.db"),
		"--tracker-path", filepath.Join(dir, "refresh_tracker.csv"),
		"--log-level", "error",
		"refresh", "--status",
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("refresh --status: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 12 {
		t.Fatalf("got %d status lines, want 12:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "FX_historical.csv") || !strings.Contains(lines[0], "due=true") || !strings.Contains(lines[0], "last=never") {
		t.Errorf("first line = %q", lines[0])
	}
}
