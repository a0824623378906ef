package fx

import (
	"errors"
	"fmt"
	"strings"
)

// USD is the pivot currency. It is never fetched and always valued at 1.0.
const USD = "USD"

// Convention describes how a ticker quotes its currency against USD.
type Convention int

const (
	// Direct tickers already quote USD per one unit of the currency (EURUSD=X).
	Direct Convention = iota + 1
	// Indirect tickers quote units of the currency per one USD (JPY=X).
	Indirect
)

func (c Convention) String() string {
	switch c {
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	default:
		return fmt.Sprintf("convention(%d)", int(c))
	}
}

func (c Convention) valid() bool { return c == Direct || c == Indirect }

// ParseConvention maps "direct"/"indirect" (any case) to a Convention.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return Direct, nil
	case "indirect":
		return Indirect, nil
	default:
		return 0, fmt.Errorf("fx: unknown quoting convention %q", s)
	}
}

// ErrUnknownCurrency is returned when a currency has no entry in the
// convention table.
var ErrUnknownCurrency = errors.New("fx: currency not in convention table")

// ConventionTable is the static currency -> convention mapping supplied at
// construction time.
type ConventionTable struct {
	m map[string]Convention
}

// NewConventionTable validates and copies the given mapping. Codes must be
// three upper-case letters, USD must not appear and every convention must be
// Direct or Indirect.
func NewConventionTable(m map[string]Convention) (ConventionTable, error) {
	out := make(map[string]Convention, len(m))
	for code, conv := range m {
		if !validCode(code) {
			return ConventionTable{}, fmt.Errorf("fx: invalid currency code %q", code)
		}
		if code == USD {
			return ConventionTable{}, fmt.Errorf("fx: %s is the pivot and cannot carry a convention", USD)
		}
		if !conv.valid() {
			return ConventionTable{}, fmt.Errorf("fx: invalid convention %v for %s", conv, code)
		}
		out[code] = conv
	}
	return ConventionTable{m: out}, nil
}

// Lookup returns the convention for code.
func (t ConventionTable) Lookup(code string) (Convention, bool) {
	c, ok := t.m[code]
	return c, ok
}

// Len reports the number of currencies in the table.
func (t ConventionTable) Len() int { return len(t.m) }

func validCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
