package model

import "math"

// HoldingRef identifies a holding without owning it. It is resolved against
// the portfolio store whenever it is used.
type HoldingRef struct {
	WatchlistID int    `json:"list_id"`
	Symbol      string `json:"symbol"`
}

// Holding is a share count of one symbol inside a watchlist. Price fields
// stay nil until the first quote arrives.
type Holding struct {
	WatchlistID   int      `json:"list_id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name,omitempty"`
	Shares        float64  `json:"shares"`
	LastPrice     *float64 `json:"last_price"`
	Change        *float64 `json:"change"`
	PercentChange *float64 `json:"percent_change"`
	MarketValue   float64  `json:"market_value"`
	DayChange     float64  `json:"day_change"`
}

// Ref returns the registry reference for h.
func (h *Holding) Ref() HoldingRef {
	return HoldingRef{WatchlistID: h.WatchlistID, Symbol: h.Symbol}
}

// SetShares replaces the share count and recomputes derived fields.
func (h *Holding) SetShares(shares float64) {
	h.Shares = shares
	h.Recalculate()
}

// AddShares merges an additional amount into the holding.
func (h *Holding) AddShares(shares float64) {
	h.SetShares(h.Shares + shares)
}

// ApplyQuote overwrites the price fields from q and recomputes derived fields.
func (h *Holding) ApplyQuote(q Quote) {
	last, change, pct := q.LastPrice, q.Change, q.PercentChange
	h.LastPrice = &last
	h.Change = &change
	h.PercentChange = &pct
	h.Recalculate()
}

// Recalculate derives MarketValue and DayChange from the input fields.
// Missing prices count as zero.
func (h *Holding) Recalculate() {
	h.MarketValue = h.Shares * deref(h.LastPrice)
	h.DayChange = h.Shares * deref(h.Change)
}

// Finite reports whether the share count and derived values are all finite.
func (h *Holding) Finite() bool {
	return isFinite(h.Shares) && isFinite(h.MarketValue) && isFinite(h.DayChange)
}

// Clone returns a deep copy.
func (h *Holding) Clone() *Holding {
	c := *h
	c.LastPrice = copyPtr(h.LastPrice)
	c.Change = copyPtr(h.Change)
	c.PercentChange = copyPtr(h.PercentChange)
	return &c
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
