package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultFREDBaseURL = "https://fred.stlouisfed.org"

// FREDClient downloads series from the public fredgraph.csv endpoint,
// which needs no API key.
type FREDClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewFREDClient(baseURL string, client *http.Client, logger *slog.Logger) *FREDClient {
	if baseURL == "" {
		baseURL = DefaultFREDBaseURL
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FREDClient{baseURL: baseURL, client: client, logger: logger}
}

// Series returns the observations of a FRED series id on or after
// r.Start. Missing observations (".") are dropped.
func (f *FREDClient) Series(ctx context.Context, id string, r Range) ([]Point, error) {
	u := fmt.Sprintf("%s/graph/fredgraph.csv?id=%s", f.baseURL, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fred %s: unexpected status %d", id, resp.StatusCode)
	}

	pts, err := parseFREDCSV(resp.Body, r.Start)
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", id, err)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("fred %s: %w", id, ErrNoData)
	}
	f.logger.Debug("fred series fetched", "series", id, "points", len(pts))
	return pts, nil
}

func parseFREDCSV(r io.Reader, start time.Time) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var out []Point
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", rec[0], err)
		}
		if !start.IsZero() && day.Before(start) {
			continue
		}
		raw := strings.TrimSpace(rec[1])
		if raw == "" || raw == "." {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		out = append(out, Point{Time: day, Value: v})
	}
	return out, nil
}
