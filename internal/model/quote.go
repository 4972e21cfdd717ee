package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is provider data for one symbol at one point in time.
type Quote struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"last_price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
}

// ParseNumber parses provider numerics such as "150.25", "+2.10" or "-0.4".
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// ParsePercent parses "1.3%", "+1.30%" or "-0.5" into 1.3, 1.3, -0.5.
func ParsePercent(s string) (float64, error) {
	return ParseNumber(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
