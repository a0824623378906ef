package datasets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bher20/marketdash/internal/fx"
	"github.com/bher20/marketdash/internal/market"
	"github.com/bher20/marketdash/internal/storage"
)

const ContentTypeJSON = "application/json"

// SeriesSet is the cached form of a historical dataset: one series per
// ticker name. Tickers that failed are listed in Missing.
type SeriesSet struct {
	Resource string                    `json:"resource"`
	Fetched  time.Time                 `json:"fetched"`
	Series   map[string][]market.Point `json:"series"`
	Missing  []string                  `json:"missing,omitempty"`
}

// QuoteRow is one line of a snapshot dataset.
type QuoteRow struct {
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	Last      float64  `json:"last"`
	Previous  *float64 `json:"previous,omitempty"`
	ChangePct *float64 `json:"change_pct,omitempty"`
}

// QuoteSet is the cached form of a snapshot dataset.
type QuoteSet struct {
	Resource string     `json:"resource"`
	Fetched  time.Time  `json:"fetched"`
	Rows     []QuoteRow `json:"rows"`
	Missing  []string   `json:"missing,omitempty"`
}

// MatrixSet is the cached form of the FX rate matrix.
type MatrixSet struct {
	Fetched   time.Time `json:"fetched"`
	Table     fx.Table  `json:"table"`
	Undefined int       `json:"undefined_cells"`
	Gaps      []string  `json:"gaps,omitempty"`
}

func saveJSON(ctx context.Context, store storage.SnapshotStore, resource string, at time.Time, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", resource, err)
	}
	return store.SaveSnapshot(ctx, storage.Snapshot{
		Resource:    resource,
		ContentType: ContentTypeJSON,
		Payload:     payload,
		FetchedAt:   at,
	})
}

// LoadMatrix returns the cached FX matrix, or nil if none was produced yet.
func LoadMatrix(ctx context.Context, store storage.SnapshotStore) (*MatrixSet, error) {
	snap, err := store.GetSnapshot(ctx, FXMatrix)
	if err != nil || snap == nil {
		return nil, err
	}
	var m MatrixSet
	if err := json.Unmarshal(snap.Payload, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", FXMatrix, err)
	}
	return &m, nil
}
