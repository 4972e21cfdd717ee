package quote

import (
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

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider reads the Yahoo Finance v7 quote endpoint.
type YahooProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooProvider creates a Yahoo provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	return &YahooProvider{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL, 30*time.Second),
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// yahooQuoteResponse is the response structure from the v7 quote API.
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string   `json:"symbol"`
			RegularMarketPrice         *float64 `json:"regularMarketPrice"`
			RegularMarketChange        *float64 `json:"regularMarketChange"`
			RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

func (p *YahooProvider) FetchQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", p.BaseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo request: %v", ErrProvider, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo status %d, body: %s", ErrProvider, resp.StatusCode, truncate(body, 200))
	}

	var qr yahooQuoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrProvider, err)
	}
	if qr.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrProvider, qr.QuoteResponse.Error.Description)
	}

	quotes := make([]model.Quote, 0, len(qr.QuoteResponse.Result))
	for _, r := range qr.QuoteResponse.Result {
		if r.RegularMarketPrice == nil {
			return nil, fmt.Errorf("%w: yahoo: no price for %s", ErrProvider, r.Symbol)
		}
		q := model.Quote{Symbol: model.NormalizeSymbol(r.Symbol), LastPrice: *r.RegularMarketPrice}
		if r.RegularMarketChange != nil {
			q.Change = *r.RegularMarketChange
		}
		if r.RegularMarketChangePercent != nil {
			q.PercentChange = *r.RegularMarketChangePercent
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
