package fx

import (
	"fmt"
	"math"
)

// Normalize converts a raw close series for code into USD per one unit of
// code. Non-finite points are dropped, as are zero points on Indirect
// tickers. An empty series normalizes to an empty result.
func Normalize(code string, raw []float64, table ConventionTable) ([]float64, error) {
	conv, ok := table.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}

	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if conv == Indirect {
			if v == 0 {
				continue
			}
			v = 1.0 / v
		}
		out = append(out, v)
	}
	return out, nil
}

// LatestPrevious returns the last and second-to-last observations of a
// normalized series. Missing observations are NaN; previous is never filled
// from latest.
func LatestPrevious(series []float64) (latest, previous float64) {
	latest, previous = math.NaN(), math.NaN()
	n := len(series)
	if n >= 1 {
		latest = series[n-1]
	}
	if n >= 2 {
		previous = series[n-2]
	}
	return latest, previous
}
