package datasets

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bher20/marketdash/internal/fx"
	"github.com/bher20/marketdash/internal/market"
	"github.com/bher20/marketdash/internal/refresh"
	"github.com/bher20/marketdash/internal/storage"
)

// fakeSource answers every symbol with a fixed series unless it is listed
// in fail.
type fakeSource struct {
	series map[string][]float64
	def    []float64
	fail   map[string]bool
	calls  int
	ranges []market.Range
}

func (f *fakeSource) Series(ctx context.Context, id string, r market.Range) ([]market.Point, error) {
	f.calls++
	f.ranges = append(f.ranges, r)
	if f.fail[id] {
		return nil, errors.New("upstream down")
	}
	vals, ok := f.series[id]
	if !ok {
		vals = f.def
	}
	if len(vals) == 0 {
		return nil, market.ErrNoData
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]market.Point, len(vals))
	for i, v := range vals {
		pts[i] = market.Point{Time: base.AddDate(0, 0, i), Value: v}
	}
	return pts, nil
}

func newRegistry(t *testing.T, yahoo, fred market.SeriesSource, store storage.SnapshotStore, onMatrix func(fx.Matrix, []fx.Gap)) *Registry {
	t.Helper()
	r, err := New(Config{Yahoo: yahoo, FRED: fred, Store: store, OnMatrix: onMatrix})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestTasks_FREDRanges(t *testing.T) {
	fred := &fakeSource{def: []float64{4.5, 4.25}}
	r := newRegistry(t, &fakeSource{}, fred, storage.NewMemory(), nil)
	want := map[string]time.Time{USYields: fredStart, MonetaryPolicy: policyStart}
	for _, task := range r.Tasks() {
		start, ok := want[task.ID]
		if !ok {
			continue
		}
		fred.ranges = nil
		if err := task.Produce(context.Background()); err != nil {
			t.Fatalf("%s: produce failed: %v", task.ID, err)
		}
		for _, rng := range fred.ranges {
			if !rng.Start.Equal(start) {
				t.Errorf("%s: Start = %v, want %v", task.ID, rng.Start, start)
			}
		}
		if len(fred.ranges) == 0 {
			t.Errorf("%s: no FRED requests", task.ID)
		}
	}
}

func TestTasks_OrderAndModes(t *testing.T) {
	r := newRegistry(t, &fakeSource{}, &fakeSource{}, storage.NewMemory(), nil)
	tasks := r.Tasks()
	want := []struct {
		id   string
		mode refresh.Mode
	}{
		{FXHistory, refresh.Historical},
		{StocksHistory, refresh.Historical},
		{IndicesHistory, refresh.Historical},
		{USYields, refresh.Historical},
		{OECDYields, refresh.Historical},
		{FXMatrix, refresh.Snapshot},
		{StocksSnapshot, refresh.Snapshot},
		{IndicesSnapshot, refresh.Snapshot},
		{CrossAsset, refresh.Snapshot},
		{MonetaryPolicy, refresh.Weekly},
		{MetalsHistory, refresh.Daily},
		{FuturesCurves, refresh.Daily},
	}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, w := range want {
		if tasks[i].ID != w.id || tasks[i].Mode != w.mode {
			t.Errorf("task %d = %s/%s, want %s/%s", i, tasks[i].ID, tasks[i].Mode, w.id, w.mode)
		}
	}
	if also := tasks[10].Also; len(also) != 2 || also[0] != EnergyHistory || also[1] != AgricultureHistory {
		t.Errorf("hist_metals companions = %v", also)
	}
	if err := refresh.ValidateTasks(tasks); err != nil {
		t.Errorf("ValidateTasks: %v", err)
	}
}

func TestFXMatrixProducer(t *testing.T) {
	yahoo := &fakeSource{
		series: map[string][]float64{
			"EURUSD=X": {1.10, 1.12},
			"GBPUSD=X": {1.30, 1.31},
			"JPY=X":    {150, 148},
		},
		fail: map[string]bool{"CHFUSD=X": true},
	}
	store := storage.NewMemory()
	var undefined int
	r := newRegistry(t, yahoo, &fakeSource{}, store, func(m fx.Matrix, gaps []fx.Gap) { undefined = m.Undefined() })

	if err := r.fxMatrix(context.Background()); err != nil {
		t.Fatalf("fxMatrix failed: %v", err)
	}
	m, err := LoadMatrix(context.Background(), store)
	if err != nil || m == nil {
		t.Fatalf("LoadMatrix = %v, %v", m, err)
	}
	if got := m.Table.Labels; len(got) != 5 || got[0] != "USD" || got[4] != "CHF" {
		t.Errorf("labels = %v", got)
	}
	if got := m.Table.Cells[1][0]; got != "1.1200 (+1.82%)" {
		t.Errorf("EUR/USD cell = %q", got)
	}
	if got := m.Table.Cells[4][1]; got != fx.UndefinedCell {
		t.Errorf("CHF/EUR cell = %q, want NaN", got)
	}
	if len(m.Gaps) != 1 || m.Gaps[0] != "CHF" {
		t.Errorf("gaps = %v", m.Gaps)
	}
	if undefined != m.Undefined || undefined != 9 {
		t.Errorf("undefined = %d (stored %d), want 9", undefined, m.Undefined)
	}
}

func TestFXMatrixProducer_AllMissingFails(t *testing.T) {
	store := storage.NewMemory()
	r := newRegistry(t, &fakeSource{}, &fakeSource{}, store, nil)
	if err := r.fxMatrix(context.Background()); err == nil {
		t.Fatalf("expected error when no currency has data")
	}
	if m, _ := LoadMatrix(context.Background(), store); m != nil {
		t.Errorf("nothing should be cached on failure")
	}
}

func TestSeriesProducer_SkipsFailingSeries(t *testing.T) {
	fred := &fakeSource{def: []float64{4.4, 4.5}, fail: map[string]bool{"DGS30": true}}
	store := storage.NewMemory()
	r := newRegistry(t, &fakeSource{}, fred, store, nil)

	produce := r.series(USYields, "U.S. yield", fred, usYieldSeries, market.Range{})
	if err := produce(context.Background()); err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	snap, _ := store.GetSnapshot(context.Background(), USYields)
	if snap == nil || snap.ContentType != ContentTypeJSON {
		t.Fatalf("snapshot = %+v", snap)
	}
	var set SeriesSet
	if err := json.Unmarshal(snap.Payload, &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(set.Series) != 4 || len(set.Missing) != 1 || set.Missing[0] != "30Y" {
		t.Errorf("series=%d missing=%v", len(set.Series), set.Missing)
	}
}

func TestSeriesProducer_NothingDownloadedFails(t *testing.T) {
	r := newRegistry(t, &fakeSource{}, &fakeSource{}, storage.NewMemory(), nil)
	err := r.series(OECDYields, "OECD yield", r.fred, oecdYieldSeries, market.Range{})(context.Background())
	if err == nil || err.Error() != "no OECD yield data could be downloaded" {
		t.Fatalf("err = %v", err)
	}
}

func TestQuotesProducer(t *testing.T) {
	yahoo := &fakeSource{def: []float64{100, 102}}
	store := storage.NewMemory()
	r := newRegistry(t, yahoo, &fakeSource{}, store, nil)
	if err := r.quotes(IndicesSnapshot, "index", indexTickers)(context.Background()); err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	snap, _ := store.GetSnapshot(context.Background(), IndicesSnapshot)
	var set QuoteSet
	if err := json.Unmarshal(snap.Payload, &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(set.Rows) != len(indexTickers) {
		t.Fatalf("rows = %d", len(set.Rows))
	}
	row := set.Rows[0]
	if row.Last != 102 || row.Previous == nil || *row.Previous != 100 || row.ChangePct == nil || *row.ChangePct != 2 {
		t.Errorf("row = %+v", row)
	}
}

func TestCommodities_WritesEachGroup(t *testing.T) {
	yahoo := &fakeSource{def: []float64{1, 2}, fail: map[string]bool{"ZC=F": true, "ZW=F": true, "ZS=F": true, "KC=F": true}}
	store := storage.NewMemory()
	r := newRegistry(t, yahoo, &fakeSource{}, store, nil)
	if err := r.commodities(context.Background()); err != nil {
		t.Fatalf("commodities failed: %v", err)
	}
	for _, id := range []string{MetalsHistory, EnergyHistory} {
		if s, _ := store.GetSnapshot(context.Background(), id); s == nil {
			t.Errorf("%s not written", id)
		}
	}
	if s, _ := store.GetSnapshot(context.Background(), AgricultureHistory); s != nil {
		t.Errorf("agriculture should be skipped when every ticker fails")
	}
}

func TestRegistryWithOrchestrator(t *testing.T) {
	ctx := context.Background()
	yahoo := &fakeSource{def: []float64{1.0, 1.1}}
	fred := &fakeSource{}
	st := storage.NewMemory()
	r := newRegistry(t, yahoo, fred, st, nil)

	o, err := refresh.New(refresh.Config{Store: st})
	if err != nil {
		t.Fatalf("refresh.New: %v", err)
	}
	rep, err := o.Run(ctx, r.Tasks())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// FRED-backed resources fail, everything else refreshes.
	if rep.Failed() != 3 || rep.Refreshed() != 9 {
		t.Errorf("failed=%d refreshed=%d, want 3/9", rep.Failed(), rep.Refreshed())
	}

	calls := yahoo.calls
	rep, err = o.Run(ctx, r.Tasks())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if yahoo.calls != calls {
		t.Errorf("second run fetched %d more yahoo series, want 0", yahoo.calls-calls)
	}
	if rep.Failed() != 3 {
		t.Errorf("failed resources should be retried: failed=%d", rep.Failed())
	}

	entries, _ := st.LoadTracker(ctx)
	ids := map[string]bool{}
	for _, e := range entries {
		ids[e.ResourceID] = true
	}
	if !ids[EnergyHistory] || !ids[AgricultureHistory] || ids[USYields] {
		t.Errorf("tracker ids = %v", ids)
	}
}

func TestParseFXPairs(t *testing.T) {
	pairs, err := ParseFXPairs("")
	if err != nil || len(pairs) != 4 {
		t.Fatalf("default pairs = %v, %v", pairs, err)
	}

	pairs, err = ParseFXPairs(`[{"currency":"aud","ticker":"AUDUSD=X","convention":"direct"},{"currency":"CAD","ticker":"CAD=X","convention":"indirect"}]`)
	if err != nil {
		t.Fatalf("ParseFXPairs: %v", err)
	}
	b, err := NewFXBuilder(pairs)
	if err != nil {
		t.Fatalf("NewFXBuilder: %v", err)
	}
	if got := b.Pairs(); got[0].Currency != "AUD" || got[1].Ticker != "CAD=X" {
		t.Errorf("pairs = %+v", got)
	}

	bad := []string{
		`not json`,
		`[]`,
	}
	for _, raw := range bad {
		if _, err := ParseFXPairs(raw); err == nil {
			t.Errorf("ParseFXPairs(%q) should fail", raw)
		}
	}
	for _, decl := range [][]FXPair{
		{{Currency: "USD", Ticker: "X", Convention: "direct"}},
		{{Currency: "EUR", Ticker: "EURUSD=X", Convention: "sideways"}},
		{{Currency: "EUR", Ticker: "", Convention: "direct"}},
	} {
		if _, err := NewFXBuilder(decl); err == nil {
			t.Errorf("NewFXBuilder(%+v) should fail", decl)
		}
	}
}
