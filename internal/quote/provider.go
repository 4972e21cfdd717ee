package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"StockDog/internal/model"
)

// ErrProvider marks every failure that originates at the quote source:
// transport errors, bad status codes and malformed payloads.
var ErrProvider = errors.New("quote provider error")

// Provider fetches quotes for a batch of symbols in one request. An empty
// result with a nil error means the provider had no data.
type Provider interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]model.Quote, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewProvider builds the provider named by kind ("yahoo" or "rest").
func NewProvider(kind, baseURL, apiKey, proxyURL string) (Provider, error) {
	switch kind {
	case "", "yahoo":
		p := NewYahooProvider(proxyURL)
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		return p, nil
	case "rest":
		if baseURL == "" {
			return nil, fmt.Errorf("rest quote provider needs a base url")
		}
		return NewRESTProvider(baseURL, apiKey, proxyURL), nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", kind)
	}
}
