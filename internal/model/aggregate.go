package model

// Totals is the elementwise sum of shares, market value and day change.
type Totals struct {
	Shares      float64 `json:"shares"`
	MarketValue float64 `json:"market_value"`
	DayChange   float64 `json:"day_change"`
}

// Add returns t + o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Shares:      t.Shares + o.Shares,
		MarketValue: t.MarketValue + o.MarketValue,
		DayChange:   t.DayChange + o.DayChange,
	}
}

// Finite reports whether every sum in t is finite.
func (t Totals) Finite() bool {
	return isFinite(t.Shares) && isFinite(t.MarketValue) && isFinite(t.DayChange)
}

// Aggregate sums holdings from their input fields. Holdings without a quote
// contribute their shares but no value.
func Aggregate(holdings []*Holding) Totals {
	var t Totals
	for _, h := range holdings {
		if h == nil {
			continue
		}
		t.Shares += h.Shares
		t.MarketValue += h.Shares * deref(h.LastPrice)
		t.DayChange += h.Shares * deref(h.Change)
	}
	return t
}
