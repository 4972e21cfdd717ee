package model

// Watchlist is a named collection of holdings with aggregate totals.
type Watchlist struct {
	ID               int        `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Holdings         []*Holding `json:"stocks"`
	TotalShares      float64    `json:"shares"`
	TotalMarketValue float64    `json:"market_value"`
	TotalDayChange   float64    `json:"day_change"`
}

// Find returns the holding for symbol and its index, or nil and -1.
func (w *Watchlist) Find(symbol string) (*Holding, int) {
	for i, h := range w.Holdings {
		if h.Symbol == symbol {
			return h, i
		}
	}
	return nil, -1
}

// Recalculate refreshes every holding's derived fields and the list totals.
func (w *Watchlist) Recalculate() {
	for _, h := range w.Holdings {
		h.Recalculate()
	}
	t := Aggregate(w.Holdings)
	w.TotalShares = t.Shares
	w.TotalMarketValue = t.MarketValue
	w.TotalDayChange = t.DayChange
}

// Totals returns the list aggregates as a Totals value.
func (w *Watchlist) Totals() Totals {
	return Totals{
		Shares:      w.TotalShares,
		MarketValue: w.TotalMarketValue,
		DayChange:   w.TotalDayChange,
	}
}

// Refs returns a registry reference for every holding in the list.
func (w *Watchlist) Refs() []HoldingRef {
	refs := make([]HoldingRef, 0, len(w.Holdings))
	for _, h := range w.Holdings {
		refs = append(refs, h.Ref())
	}
	return refs
}

// Clone returns a deep copy.
func (w *Watchlist) Clone() Watchlist {
	c := *w
	c.Holdings = make([]*Holding, len(w.Holdings))
	for i, h := range w.Holdings {
		c.Holdings[i] = h.Clone()
	}
	return c
}
