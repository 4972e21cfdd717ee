// Package company holds the reference list of listed companies offered when
// adding a holding.
package company

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"StockDog/internal/model"
)

//go:embed companies.json
var builtin []byte

// Catalog is read-only after construction.
type Catalog struct {
	companies []model.Company
	bySymbol  map[string]model.Company
}

// Load reads the catalog from path, or the built-in list when path is empty.
func Load(path string) (*Catalog, error) {
	data := builtin
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read company catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse builds a catalog from a JSON array of {symbol, name}.
func Parse(data []byte) (*Catalog, error) {
	var raw []model.Company
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse company catalog: %w", err)
	}
	c := &Catalog{bySymbol: make(map[string]model.Company, len(raw))}
	for _, co := range raw {
		co.Symbol = model.NormalizeSymbol(co.Symbol)
		if co.Symbol == "" {
			continue
		}
		if _, dup := c.bySymbol[co.Symbol]; dup {
			continue
		}
		c.bySymbol[co.Symbol] = co
		c.companies = append(c.companies, co)
	}
	sort.Slice(c.companies, func(i, j int) bool { return c.companies[i].Symbol < c.companies[j].Symbol })
	return c, nil
}

// All returns the companies sorted by symbol.
func (c *Catalog) All() []model.Company {
	return append([]model.Company(nil), c.companies...)
}

func (c *Catalog) Lookup(symbol string) (model.Company, bool) {
	co, ok := c.bySymbol[model.NormalizeSymbol(symbol)]
	return co, ok
}

func (c *Catalog) Len() int { return len(c.companies) }
