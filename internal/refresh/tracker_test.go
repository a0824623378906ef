package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bher20/marketdash/internal/storage"
)

func TestTrackerFromEntries_KeepsNewestAndSkipsBlank(t *testing.T) {
	old := at(2025, 6, 1, 0, 0)
	newer := at(2025, 6, 2, 0, 0)
	tr := TrackerFromEntries([]storage.TrackerEntry{
		{ResourceID: "a", LastUpdate: newer},
		{ResourceID: "a", LastUpdate: old},
		{ResourceID: "", LastUpdate: newer},
		{ResourceID: "b"},
	})
	if tr.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tr.Len())
	}
	if ts, _ := tr.Get("a"); !ts.Equal(newer) {
		t.Errorf("a = %v, want %v", ts, newer)
	}
}

func TestTracker_EntriesSorted(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	for _, id := range []string{"stocks_history.csv", "FX_historical.csv", "indices_snapshot.csv"} {
		tr.MarkRefreshed(id, now)
	}
	got := tr.Entries()
	want := []string{"FX_historical.csv", "indices_snapshot.csv", "stocks_history.csv"}
	for i, e := range got {
		if e.ResourceID != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.ResourceID, want[i])
		}
	}
}

func TestLoadTracker_MissingAndMalformedAreEmpty(t *testing.T) {
	ctx := context.Background()
	for _, loadErr := range []error{storage.ErrStoreMissing, storage.ErrStoreMalformed} {
		store := &failingStore{TrackerStore: storage.NewMemory(), loadErr: loadErr}
		tr, err := LoadTracker(ctx, store, nil)
		if err != nil {
			t.Fatalf("%v: unexpected error %v", loadErr, err)
		}
		if tr.Len() != 0 {
			t.Errorf("%v: Len = %d, want 0", loadErr, tr.Len())
		}
	}

	other := errors.New("io error")
	store := &failingStore{TrackerStore: storage.NewMemory(), loadErr: other}
	if _, err := LoadTracker(ctx, store, nil); !errors.Is(err, other) {
		t.Errorf("err = %v, want io error", err)
	}
}
