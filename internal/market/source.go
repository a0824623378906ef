// Package market fetches raw price and rate series from upstream providers.
// Clients here do no transformation beyond dropping missing observations.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned when an upstream answers but carries no usable
// observations for the requested series.
var ErrNoData = errors.New("market: no data")

// Range selects the window of a series request. Start, when set, takes
// precedence over Period.
type Range struct {
	Period   string
	Interval string
	Start    time.Time
}

var (
	// SnapshotRange is the short window used for latest/previous closes.
	SnapshotRange = Range{Period: "5d", Interval: "1d"}
	// HistoryRange is the full daily history.
	HistoryRange = Range{Period: "max", Interval: "1d"}
)

// Point is one dated observation.
type Point struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// SeriesSource returns the observations of one upstream series in
// chronological order.
type SeriesSource interface {
	Series(ctx context.Context, id string, r Range) ([]Point, error)
}

// Values strips the timestamps from points.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// Closes fetches a series and returns only its values.
func Closes(ctx context.Context, src SeriesSource, id string, r Range) ([]float64, error) {
	pts, err := src.Series(ctx, id, r)
	if err != nil {
		return nil, err
	}
	return Values(pts), nil
}
