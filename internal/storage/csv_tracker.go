package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	colResourceID = "resource_id"
	colLastUpdate = "last_update"
	// Older tracker files keyed rows by output file name.
	colLegacyName = "csv_name"
)

// Timestamps written by older tooling lack a zone and use a space separator.
var legacyLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// CSVTracker is a TrackerStore backed by a flat CSV file with the columns
// resource_id and last_update (RFC 3339).
type CSVTracker struct {
	path string
}

func NewCSVTracker(path string) *CSVTracker {
	return &CSVTracker{path: path}
}

func (c *CSVTracker) Path() string { return c.path }

func (c *CSVTracker) LoadTracker(ctx context.Context) ([]TrackerEntry, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStoreMissing
		}
		return nil, err
	}
	defer f.Close()
	return readTrackerCSV(f)
}

func readTrackerCSV(r io.Reader) ([]TrackerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrStoreMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreMalformed, err)
	}

	idCol, tsCol := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.ReplaceAll(name, ";", ""))
		name = strings.TrimPrefix(name, "\ufeff")
		switch name {
		case colResourceID, colLegacyName:
			if idCol < 0 {
				idCol = i
			}
		case colLastUpdate:
			tsCol = i
		}
	}
	if idCol < 0 || tsCol < 0 {
		return nil, fmt.Errorf("%w: want columns %s,%s got %v", ErrStoreMalformed, colResourceID, colLastUpdate, header)
	}

	byID := make(map[string]time.Time)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, err
			}
			slog.Warn("tracker: skipping unreadable row", "line", line, "err", err)
			continue
		}
		if idCol >= len(rec) {
			continue
		}
		id := strings.TrimSpace(rec[idCol])
		if id == "" {
			continue
		}
		raw := ""
		if tsCol < len(rec) {
			raw = strings.TrimSpace(strings.ReplaceAll(rec[tsCol], ";", ""))
		}
		// An empty timestamp means never refreshed.
		if raw == "" {
			continue
		}
		// A bad cell only loses that row; the rest of the file stays valid.
		ts, err := parseTimestamp(raw)
		if err != nil {
			slog.Warn("tracker: skipping row", "line", line, "resource", id, "err", err)
			continue
		}
		if prev, ok := byID[id]; !ok || ts.After(prev) {
			byID[id] = ts
		}
	}

	out := make([]TrackerEntry, 0, len(byID))
	for id, ts := range byID {
		out = append(out, TrackerEntry{ResourceID: id, LastUpdate: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	for _, layout := range legacyLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// SaveTracker rewrites the whole file through a temp file and rename.
func (c *CSVTracker) SaveTracker(ctx context.Context, entries []TrackerEntry) error {
	sorted := make([]TrackerEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ResourceID < sorted[j].ResourceID })

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{colResourceID, colLastUpdate}); err != nil {
		return err
	}
	for _, e := range sorted {
		if err := cw.Write([]string{e.ResourceID, e.LastUpdate.Format(time.RFC3339Nano)}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return writeFileAtomically(c.path, &buf)
}

func writeFileAtomically(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
