package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockDog/internal/model"
)

// RESTProvider talks to a generic quote service:
//
//	GET {BaseURL}/api/v1/quotes?symbols=AAPL,MSFT
//	{"count": 2, "quotes": [{"symbol": "AAPL", "last_trade_price": "150.00",
//	  "change": "+2.00", "change_percent": "+1.30%"}, ...]}
//
// Numeric fields may be strings or numbers. When count is 1 the service may
// send a single object instead of an array.
type RESTProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTProvider creates a provider with optional proxy support.
func NewRESTProvider(baseURL, apiKey, proxyURL string) *RESTProvider {
	return &RESTProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, 30*time.Second),
	}
}

func (p *RESTProvider) Name() string { return "rest" }

type restEnvelope struct {
	Count  int             `json:"count"`
	Quotes json.RawMessage `json:"quotes"`
}

type restQuote struct {
	Symbol        string     `json:"symbol"`
	LastPrice     flexString `json:"last_trade_price"`
	Change        flexString `json:"change"`
	ChangePercent flexString `json:"change_percent"`
}

// flexString accepts a JSON string or a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(b)
	}
	return nil
}

func (p *RESTProvider) FetchQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	endpoint := fmt.Sprintf("%s/api/v1/quotes?symbols=%s", p.BaseURL, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch quotes: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrProvider, resp.StatusCode, truncate(body, 200))
	}
	return decodeREST(body)
}

func decodeREST(body []byte) ([]model.Quote, error) {
	var env restEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrProvider, err)
	}
	if env.Count == 0 {
		return nil, nil
	}

	var records []restQuote
	raw := bytes.TrimSpace(env.Quotes)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil, fmt.Errorf("%w: count %d but no quotes", ErrProvider, env.Count)
	case raw[0] == '{':
		var one restQuote
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("%w: decode quote: %v", ErrProvider, err)
		}
		records = []restQuote{one}
	default:
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("%w: decode quotes: %v", ErrProvider, err)
		}
	}

	quotes := make([]model.Quote, 0, len(records))
	for _, r := range records {
		q, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (r restQuote) toModel() (model.Quote, error) {
	q := model.Quote{Symbol: model.NormalizeSymbol(r.Symbol)}
	var err error
	if q.LastPrice, err = model.ParseNumber(string(r.LastPrice)); err != nil {
		return q, fmt.Errorf("%s last price: %w", r.Symbol, err)
	}
	if r.Change != "" {
		if q.Change, err = model.ParseNumber(string(r.Change)); err != nil {
			return q, fmt.Errorf("%s change: %w", r.Symbol, err)
		}
	}
	if r.ChangePercent != "" {
		if q.PercentChange, err = model.ParsePercent(string(r.ChangePercent)); err != nil {
			return q, fmt.Errorf("%s change percent: %w", r.Symbol, err)
		}
	}
	return q, nil
}
