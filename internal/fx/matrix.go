package fx

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	spotPlaces   = 4
	changePlaces = 2
)

// Quote is one currency's normalized latest and previous USD value.
type Quote struct {
	Currency   string
	Ticker     string
	Convention Convention
	Latest     float64
	Previous   float64
}

// Matrix holds the pairwise spot and change tables over Currencies.
// Spot[i][j] is the value of one unit of Currencies[i] in Currencies[j];
// Change[i][j] is pct[i] - pct[j]. Undefined cells are NaN.
type Matrix struct {
	Currencies []string
	Spot       [][]float64
	Change     [][]float64
}

func (m Matrix) index(code string) int {
	for i, c := range m.Currencies {
		if c == code {
			return i
		}
	}
	return -1
}

// SpotAt returns spot[base][quote]. ok is false when either code is not in
// the matrix; the value may still be NaN.
func (m Matrix) SpotAt(base, quote string) (float64, bool) {
	i, j := m.index(base), m.index(quote)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Spot[i][j], true
}

// ChangeAt returns change[base][quote], see SpotAt.
func (m Matrix) ChangeAt(base, quote string) (float64, bool) {
	i, j := m.index(base), m.index(quote)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Change[i][j], true
}

// Undefined counts NaN cells in the spot table.
func (m Matrix) Undefined() int {
	n := 0
	for _, row := range m.Spot {
		for _, v := range row {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

// Build computes the spot and change matrices pivoted on USD. USD is placed
// first at 1.0/1.0, followed by quotes in the order given. Any quote that
// names USD is ignored. Build never fails: missing data yields NaN cells
// confined to the affected currency's row and column.
func Build(quotes []Quote) Matrix {
	codes := []string{USD}
	latest := []float64{1.0}
	previous := []float64{1.0}
	for _, q := range quotes {
		if q.Currency == USD {
			continue
		}
		codes = append(codes, q.Currency)
		latest = append(latest, q.Latest)
		previous = append(previous, q.Previous)
	}

	n := len(codes)
	pct := make([]float64, n)
	for i := range codes {
		pct[i] = pctChange(latest[i], previous[i])
	}

	spot := make([][]float64, n)
	change := make([][]float64, n)
	for i := range codes {
		spot[i] = make([]float64, n)
		change[i] = make([]float64, n)
		for j := range codes {
			spot[i][j] = round(ratio(latest[i], latest[j]), spotPlaces)
			change[i][j] = round(diff(pct[i], pct[j]), changePlaces)
		}
	}

	return Matrix{Currencies: codes, Spot: spot, Change: change}
}

func defined(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func pctChange(latest, previous float64) float64 {
	if !defined(latest) || !defined(previous) || previous == 0 {
		return math.NaN()
	}
	return (latest - previous) / previous * 100.0
}

func ratio(a, b float64) float64 {
	if !defined(a) || !defined(b) || b == 0 {
		return math.NaN()
	}
	return a / b
}

func diff(a, b float64) float64 {
	if !defined(a) || !defined(b) {
		return math.NaN()
	}
	return a - b
}

// round rounds half away from zero. decimal panics on NaN, so undefined
// values pass through untouched.
func round(v float64, places int32) float64 {
	if !defined(v) {
		return math.NaN()
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Pair declares one non-USD currency and the ticker it is fetched from.
type Pair struct {
	Currency string `json:"currency"`
	Ticker   string `json:"ticker"`
}

// FetchFunc returns the chronologically ordered raw closes for a ticker.
type FetchFunc func(ctx context.Context, ticker string) ([]float64, error)

// Gap records a currency whose data could not be normalized.
type Gap struct {
	Currency string
	Ticker   string
	Err      error
}

// ErrNoData marks a fetch that returned an empty series.
var ErrNoData = errors.New("fx: no data returned")

// Builder fetches and normalizes a fixed currency declaration.
type Builder struct {
	pairs []Pair
	table ConventionTable
}

// NewBuilder validates pairs against table. Every pair must have a
// convention, must not be USD and must appear once.
func NewBuilder(pairs []Pair, table ConventionTable) (*Builder, error) {
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if p.Currency == USD {
			return nil, fmt.Errorf("fx: %s must not be declared as a pair", USD)
		}
		if _, ok := table.Lookup(p.Currency); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, p.Currency)
		}
		if p.Ticker == "" {
			return nil, fmt.Errorf("fx: empty ticker for %s", p.Currency)
		}
		if seen[p.Currency] {
			return nil, fmt.Errorf("fx: duplicate currency %s", p.Currency)
		}
		seen[p.Currency] = true
	}
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	return &Builder{pairs: cp, table: table}, nil
}

// Pairs returns the declared pairs in order.
func (b *Builder) Pairs() []Pair {
	out := make([]Pair, len(b.pairs))
	copy(out, b.pairs)
	return out
}

// Quotes fetches every declared ticker and normalizes it. Fetch errors and
// empty series are reported as gaps and produce NaN quotes.
func (b *Builder) Quotes(ctx context.Context, fetch FetchFunc) ([]Quote, []Gap) {
	quotes := make([]Quote, 0, len(b.pairs))
	var gaps []Gap
	for _, p := range b.pairs {
		conv, _ := b.table.Lookup(p.Currency)
		q := Quote{Currency: p.Currency, Ticker: p.Ticker, Convention: conv, Latest: math.NaN(), Previous: math.NaN()}

		raw, err := fetch(ctx, p.Ticker)
		if err == nil && len(raw) == 0 {
			err = ErrNoData
		}
		if err == nil {
			var norm []float64
			norm, err = Normalize(p.Currency, raw, b.table)
			if err == nil && len(norm) == 0 {
				err = ErrNoData
			}
			if err == nil {
				q.Latest, q.Previous = LatestPrevious(norm)
			}
		}
		if err != nil {
			gaps = append(gaps, Gap{Currency: p.Currency, Ticker: p.Ticker, Err: err})
		}
		quotes = append(quotes, q)
	}
	return quotes, gaps
}

// BuildFromSeries is Quotes followed by Build.
func (b *Builder) BuildFromSeries(ctx context.Context, fetch FetchFunc) (Matrix, []Gap) {
	quotes, gaps := b.Quotes(ctx, fetch)
	return Build(quotes), gaps
}
