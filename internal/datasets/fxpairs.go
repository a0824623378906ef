package datasets

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bher20/marketdash/internal/fx"
)

// FXPair is the configurable declaration of one matrix currency.
type FXPair struct {
	Currency   string `json:"currency"`
	Ticker     string `json:"ticker"`
	Convention string `json:"convention"`
}

// DefaultFXPairs is the dashboard's matrix declaration. JPY=X quotes yen
// per dollar; the others quote dollars per unit.
func DefaultFXPairs() []FXPair {
	return []FXPair{
		{Currency: "EUR", Ticker: "EURUSD=X", Convention: "direct"},
		{Currency: "GBP", Ticker: "GBPUSD=X", Convention: "direct"},
		{Currency: "JPY", Ticker: "JPY=X", Convention: "indirect"},
		{Currency: "CHF", Ticker: "CHFUSD=X", Convention: "direct"},
	}
}

// ParseFXPairs decodes a JSON array of FXPair. An empty string yields the
// default declaration.
func ParseFXPairs(raw string) ([]FXPair, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultFXPairs(), nil
	}
	var pairs []FXPair
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("datasets: parse fx pairs: %w", err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("datasets: fx pairs must not be empty")
	}
	return pairs, nil
}

// NewFXBuilder turns a declaration into a validated matrix builder.
func NewFXBuilder(pairs []FXPair) (*fx.Builder, error) {
	conv := make(map[string]fx.Convention, len(pairs))
	decl := make([]fx.Pair, 0, len(pairs))
	for _, p := range pairs {
		code := strings.ToUpper(strings.TrimSpace(p.Currency))
		c, err := fx.ParseConvention(p.Convention)
		if err != nil {
			return nil, fmt.Errorf("datasets: %s: %w", code, err)
		}
		conv[code] = c
		decl = append(decl, fx.Pair{Currency: code, Ticker: strings.TrimSpace(p.Ticker)})
	}
	table, err := fx.NewConventionTable(conv)
	if err != nil {
		return nil, err
	}
	return fx.NewBuilder(decl, table)
}
