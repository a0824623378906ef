// Package datasets declares the dashboard's refreshable resources and the
// producers that fetch and cache them.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bher20/marketdash/internal/fx"
	"github.com/bher20/marketdash/internal/market"
	"github.com/bher20/marketdash/internal/refresh"
	"github.com/bher20/marketdash/internal/storage"
)

// Config wires the registry to its upstreams and cache.
type Config struct {
	Yahoo market.SeriesSource
	FRED  market.SeriesSource
	Store storage.SnapshotStore
	// FX is the matrix builder; nil uses DefaultFXPairs.
	FX     *fx.Builder
	Clock  func() time.Time
	Logger *slog.Logger
	// OnMatrix, when set, sees every matrix the FX producer builds.
	OnMatrix func(fx.Matrix, []fx.Gap)
}

// Registry produces every dataset of the dashboard.
type Registry struct {
	yahoo    market.SeriesSource
	fred     market.SeriesSource
	store    storage.SnapshotStore
	fx       *fx.Builder
	clock    func() time.Time
	logger   *slog.Logger
	onMatrix func(fx.Matrix, []fx.Gap)
}

func New(cfg Config) (*Registry, error) {
	if cfg.Yahoo == nil || cfg.FRED == nil {
		return nil, errors.New("datasets: yahoo and fred sources are required")
	}
	if cfg.Store == nil {
		return nil, errors.New("datasets: nil snapshot store")
	}
	if cfg.FX == nil {
		b, err := NewFXBuilder(DefaultFXPairs())
		if err != nil {
			return nil, err
		}
		cfg.FX = b
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		yahoo:    cfg.Yahoo,
		fred:     cfg.FRED,
		store:    cfg.Store,
		fx:       cfg.FX,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		onMatrix: cfg.OnMatrix,
	}, nil
}

// Tasks returns the refresh tasks in their fixed processing order.
func (r *Registry) Tasks() []refresh.Task {
	tenYears := market.Range{Period: "10y", Interval: "1d"}
	fredHistory := market.Range{Start: fredStart, Interval: "1d"}
	return []refresh.Task{
		{ID: FXHistory, Mode: refresh.Historical, Produce: r.series(FXHistory, "FX", r.yahoo, fxHistoryTickers, market.HistoryRange)},
		{ID: StocksHistory, Mode: refresh.Historical, Produce: r.series(StocksHistory, "stock", r.yahoo, stockTickers, tenYears)},
		{ID: IndicesHistory, Mode: refresh.Historical, Produce: r.series(IndicesHistory, "index", r.yahoo, indexTickers, market.HistoryRange)},
		{ID: USYields, Mode: refresh.Historical, Produce: r.series(USYields, "U.S. yield", r.fred, usYieldSeries, fredHistory)},
		{ID: OECDYields, Mode: refresh.Historical, Produce: r.series(OECDYields, "OECD yield", r.fred, oecdYieldSeries, fredHistory)},
		{ID: FXMatrix, Mode: refresh.Snapshot, Produce: r.fxMatrix},
		{ID: StocksSnapshot, Mode: refresh.Snapshot, Produce: r.quotes(StocksSnapshot, "stock", stockTickers)},
		{ID: IndicesSnapshot, Mode: refresh.Snapshot, Produce: r.quotes(IndicesSnapshot, "index", indexTickers)},
		{ID: CrossAsset, Mode: refresh.Snapshot, Produce: r.quotes(CrossAsset, "cross-asset", crossAssetTickers)},
		{ID: MonetaryPolicy, Mode: refresh.Weekly, Produce: r.series(MonetaryPolicy, "policy rate", r.fred, policyRateSeries, market.Range{Start: policyStart})},
		{ID: MetalsHistory, Mode: refresh.Daily, Produce: r.commodities, Also: []string{EnergyHistory, AgricultureHistory}},
		{ID: FuturesCurves, Mode: refresh.Daily, Produce: r.quotes(FuturesCurves, "futures", futuresTickers)},
	}
}

// fetchAll collects every ticker it can; failures are logged and listed.
func (r *Registry) fetchAll(ctx context.Context, src market.SeriesSource, tickers []Ticker, rng market.Range) (map[string][]market.Point, []string) {
	got := make(map[string][]market.Point, len(tickers))
	var missing []string
	for _, t := range tickers {
		pts, err := src.Series(ctx, t.Symbol, rng)
		if err == nil && len(pts) == 0 {
			err = market.ErrNoData
		}
		if err != nil {
			r.logger.Warn("skipping series", "name", t.Name, "symbol", t.Symbol, "err", err)
			missing = append(missing, t.Name)
			continue
		}
		got[t.Name] = pts
	}
	return got, missing
}

func (r *Registry) series(resource, label string, src market.SeriesSource, tickers []Ticker, rng market.Range) refresh.Producer {
	return func(ctx context.Context) error {
		got, missing := r.fetchAll(ctx, src, tickers, rng)
		if len(got) == 0 {
			return fmt.Errorf("no %s data could be downloaded", label)
		}
		return saveJSON(ctx, r.store, resource, r.clock(), SeriesSet{
			Resource: resource,
			Fetched:  r.clock(),
			Series:   got,
			Missing:  missing,
		})
	}
}

func (r *Registry) quotes(resource, label string, tickers []Ticker) refresh.Producer {
	return func(ctx context.Context) error {
		got, missing := r.fetchAll(ctx, r.yahoo, tickers, market.SnapshotRange)
		if len(got) == 0 {
			return fmt.Errorf("no %s data could be downloaded", label)
		}
		set := QuoteSet{Resource: resource, Fetched: r.clock(), Missing: missing}
		for _, t := range tickers {
			pts, ok := got[t.Name]
			if !ok {
				continue
			}
			set.Rows = append(set.Rows, quoteRow(t, market.Values(pts)))
		}
		return saveJSON(ctx, r.store, resource, set.Fetched, set)
	}
}

func quoteRow(t Ticker, closes []float64) QuoteRow {
	last, prev := fx.LatestPrevious(closes)
	row := QuoteRow{Name: t.Name, Symbol: t.Symbol, Last: roundTo(last, 4)}
	if !math.IsNaN(prev) {
		p := roundTo(prev, 4)
		row.Previous = &p
		if prev != 0 {
			c := roundTo((last-prev)/prev*100, 2)
			row.ChangePct = &c
		}
	}
	return row
}

func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// commodities writes the metals, energy and agriculture histories in one
// pass. It fails only when no group produced data.
func (r *Registry) commodities(ctx context.Context) error {
	groups := []struct {
		resource string
		tickers  []Ticker
	}{
		{MetalsHistory, metalsTickers},
		{EnergyHistory, energyTickers},
		{AgricultureHistory, agricultureTickers},
	}
	written := 0
	for _, g := range groups {
		got, missing := r.fetchAll(ctx, r.yahoo, g.tickers, market.HistoryRange)
		if len(got) == 0 {
			r.logger.Warn("commodity group empty", "resource", g.resource)
			continue
		}
		err := saveJSON(ctx, r.store, g.resource, r.clock(), SeriesSet{
			Resource: g.resource,
			Fetched:  r.clock(),
			Series:   got,
			Missing:  missing,
		})
		if err != nil {
			return err
		}
		written++
	}
	if written == 0 {
		return errors.New("no commodity data could be downloaded")
	}
	return nil
}

// fxMatrix builds the cross-rate matrix from snapshot closes. Missing
// currencies become undefined cells; the producer fails only when every
// declared currency is missing.
func (r *Registry) fxMatrix(ctx context.Context) error {
	fetch := func(ctx context.Context, ticker string) ([]float64, error) {
		return market.Closes(ctx, r.yahoo, ticker, market.SnapshotRange)
	}
	m, gaps := r.fx.BuildFromSeries(ctx, fetch)
	if r.onMatrix != nil {
		r.onMatrix(m, gaps)
	}
	set := MatrixSet{Fetched: r.clock(), Table: fx.Format(m), Undefined: m.Undefined()}
	for _, g := range gaps {
		r.logger.Warn("fx currency undefined", "currency", g.Currency, "ticker", g.Ticker, "err", g.Err)
		set.Gaps = append(set.Gaps, g.Currency)
	}
	if n := len(r.fx.Pairs()); n > 0 && len(gaps) == n {
		return errors.New("no FX data could be downloaded")
	}
	return saveJSON(ctx, r.store, FXMatrix, set.Fetched, set)
}
