package quote

import (
	"context"
	"sync"

	"StockDog/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	mu sync.Mutex

	// Prices answers each requested symbol it knows; unknown symbols are
	// left out of the response.
	Prices map[string]model.Quote
	// Response, when set, is returned verbatim instead of Prices.
	Response []model.Quote
	Err      error
	// Gate, when set, blocks each fetch until a value is received or ctx ends.
	Gate chan struct{}

	calls    int
	requests [][]string
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, append([]string(nil), symbols...))
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response != nil {
		return append([]model.Quote(nil), m.Response...), nil
	}
	out := make([]model.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := m.Prices[s]; ok {
			q.Symbol = s
			out = append(out, q)
		}
	}
	return out, nil
}

// SetPrice sets the quote returned for symbol.
func (m *MockProvider) SetPrice(symbol string, q model.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Prices == nil {
		m.Prices = make(map[string]model.Quote)
	}
	m.Prices[symbol] = q
}

// SetError makes subsequent fetches fail with err (nil clears it).
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Calls is the number of fetches so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns the symbol lists of every fetch so far.
func (m *MockProvider) Requests() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.requests...)
}
