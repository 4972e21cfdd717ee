// Package dashboard keeps the portfolio-wide totals. It listens to store
// events and recomputes on the next read after something changed.
package dashboard

import (
	"sync"

	"StockDog/internal/metrics"
	"StockDog/internal/model"
	"StockDog/internal/portfolio"
)

// Source is the part of the store the dashboard reads and watches.
type Source interface {
	ListWatchlists() []model.Watchlist
	Observe(fn func(portfolio.Event)) (cancel func())
}

// WatchlistSummary is one row of the per-watchlist breakdown.
type WatchlistSummary struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	MarketValue float64 `json:"market_value"`
	DayChange   float64 `json:"day_change"`
	Direction   string  `json:"direction"` // "up" or "down"
}

// Overview is the portfolio-wide view.
type Overview struct {
	MarketValue float64            `json:"market_value"`
	DayChange   float64            `json:"day_change"`
	Shares      float64            `json:"shares"`
	Watchlists  []WatchlistSummary `json:"watchlists"`
	Holdings    int                `json:"holdings"`
}

// Dashboard caches the Overview until a store event invalidates it.
type Dashboard struct {
	src     Source
	metrics *metrics.Metrics
	cancel  func()

	mu       sync.Mutex
	dirty    bool
	overview Overview
	computes int
}

// New subscribes to src.
func New(src Source, m *metrics.Metrics) *Dashboard {
	d := &Dashboard{src: src, metrics: m, dirty: true}
	d.cancel = src.Observe(d.onEvent)
	return d
}

func (d *Dashboard) onEvent(portfolio.Event) {
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
}

// Overview returns current totals, recomputing if anything changed since the
// last call.
func (d *Dashboard) Overview() Overview {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dirty {
		// Clear first: an event landing during the read marks it dirty again.
		d.dirty = false
		d.overview = compute(d.src.ListWatchlists())
		d.computes++
		d.metrics.SetPortfolio(d.overview.MarketValue, d.overview.DayChange)
	}
	out := d.overview
	out.Watchlists = append([]WatchlistSummary(nil), d.overview.Watchlists...)
	return out
}

// Close stops listening to the store.
func (d *Dashboard) Close() {
	if d.cancel != nil {
		d.cancel()
	}
}

func compute(lists []model.Watchlist) Overview {
	o := Overview{Watchlists: make([]WatchlistSummary, 0, len(lists))}
	var total model.Totals
	for _, w := range lists {
		total = total.Add(w.Totals())
		o.Holdings += len(w.Holdings)
		dir := "up"
		if w.TotalDayChange < 0 {
			dir = "down"
		}
		o.Watchlists = append(o.Watchlists, WatchlistSummary{
			ID:          w.ID,
			Name:        w.Name,
			MarketValue: w.TotalMarketValue,
			DayChange:   w.TotalDayChange,
			Direction:   dir,
		})
	}
	o.MarketValue = total.MarketValue
	o.DayChange = total.DayChange
	o.Shares = total.Shares
	return o
}
