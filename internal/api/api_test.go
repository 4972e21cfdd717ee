package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"StockDog/internal/company"
	"StockDog/internal/dashboard"
	"StockDog/internal/metrics"
	"StockDog/internal/model"
	"StockDog/internal/portfolio"
	"StockDog/internal/quote"
	"StockDog/internal/quotesync"
	"StockDog/internal/recorder"
	"StockDog/internal/registry"
	"StockDog/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app      *fiber.App
	h        *Handlers
	store    *portfolio.Store
	registry *registry.Registry
	provider *quote.MockProvider
}

func setupAPITest(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	catalog, err := company.Load("")
	require.NoError(t, err)
	m := metrics.New("stockdog_test")
	reg := registry.New()
	store, err := portfolio.NewStore(ctx, storage.NewMemoryKV(),
		portfolio.WithTracker(reg),
		portfolio.WithCompanies(catalog),
		portfolio.WithMetrics(m),
	)
	require.NoError(t, err)

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	provider := &quote.MockProvider{}
	provider.SetPrice("AAPL", model.Quote{LastPrice: 150, Change: 2, PercentChange: 1.3})
	provider.SetPrice("XOM", model.Quote{LastPrice: 100, Change: -3, PercentChange: -2.9})
	provider.SetPrice("MSFT", model.Quote{LastPrice: 400, Change: 1, PercentChange: 0.25})

	engine := quotesync.New(provider, reg, store,
		quotesync.WithRecorder(rec),
		quotesync.WithMetrics(m),
	)
	dash := dashboard.New(store, m)
	views := NewViews(store, reg, engine.FetchNow, 5*time.Second)
	t.Cleanup(func() {
		views.Close()
		dash.Close()
	})

	h := &Handlers{
		Store:     store,
		Views:     views,
		Dashboard: dash,
		Engine:    engine,
		Registry:  reg,
		Catalog:   catalog,
		Recorder:  rec,
		Timeout:   5 * time.Second,
	}
	return &fixture{
		app:      NewApp(h, m.Handler()),
		h:        h,
		store:    store,
		registry: reg,
		provider: provider,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(out map[string]interface{}) map[string]interface{} {
	d, _ := out["data"].(map[string]interface{})
	return d
}

func (f *fixture) createList(t *testing.T, name string) int {
	t.Helper()
	code, out := f.do(t, "POST", "/api/v1/watchlists", map[string]string{"name": name})
	require.Equal(t, fiber.StatusCreated, code)
	return int(data(out)["id"].(float64))
}

func TestWatchlistCRUD(t *testing.T) {
	f := setupAPITest(t)

	id := f.createList(t, "Tech")

	code, out := f.do(t, "POST", "/api/v1/watchlists", map[string]string{
		"name":        "Long",
		"description": "this description is certainly longer than forty characters",
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "error", out["status"])

	code, _ = f.do(t, "GET", "/api/v1/watchlists/999", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
	code, _ = f.do(t, "GET", "/api/v1/watchlists/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out = f.do(t, "POST", "/api/v1/watchlists/1/holdings", map[string]interface{}{"symbol": "aapl", "shares": 10})
	require.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "AAPL", data(out)["symbol"])
	assert.Equal(t, "Apple Inc.", data(out)["name"])

	code, _ = f.do(t, "POST", "/api/v1/watchlists/1/holdings", map[string]interface{}{"symbol": "IBM"})
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = f.do(t, "POST", "/api/v1/watchlists/1/holdings", map[string]interface{}{"symbol": "IBM", "shares": -1})
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = f.do(t, "POST", "/api/v1/watchlists/999/holdings", map[string]interface{}{"symbol": "IBM", "shares": 1})
	assert.Equal(t, fiber.StatusNotFound, code)

	code, out = f.do(t, "PATCH", "/api/v1/watchlists/1/holdings/AAPL", map[string]interface{}{"shares": 4})
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 4.0, data(out)["shares"])

	code, _ = f.do(t, "DELETE", "/api/v1/watchlists/1/holdings/IBM", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
	code, _ = f.do(t, "DELETE", "/api/v1/watchlists/1/holdings/aapl", nil)
	assert.Equal(t, fiber.StatusOK, code)

	code, out = f.do(t, "GET", "/api/v1/watchlists", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 1.0, out["metadata"].(map[string]interface{})["count"])

	code, _ = f.do(t, "DELETE", "/api/v1/watchlists/1", nil)
	assert.Equal(t, fiber.StatusOK, code)
	code, _ = f.do(t, "DELETE", "/api/v1/watchlists/1", nil)
	assert.Equal(t, fiber.StatusOK, code, "delete is idempotent")
	_, err := f.store.GetWatchlist(id)
	assert.ErrorIs(t, err, portfolio.ErrNotFound)
}

func TestViews_RegisterShownHoldings(t *testing.T) {
	f := setupAPITest(t)
	tech := f.createList(t, "Tech")
	energy := f.createList(t, "Energy")
	_, err := f.store.AddHolding(tech, "AAPL", 10)
	require.NoError(t, err)
	_, err = f.store.AddHolding(energy, "XOM", 4)
	require.NoError(t, err)

	code, out := f.do(t, "POST", "/api/v1/views/watchlists/1", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{"AAPL"}, f.registry.Snapshot())
	assert.Equal(t, 1500.0, data(out)["market_value"])
	assert.Equal(t, 20.0, data(out)["day_change"])

	code, out = f.do(t, "POST", "/api/v1/views/dashboard", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{"AAPL", "XOM"}, f.registry.Snapshot())
	assert.Equal(t, 1900.0, data(out)["market_value"])
	assert.Equal(t, 8.0, data(out)["day_change"])

	code, _ = f.do(t, "POST", "/api/v1/views/watchlists/999", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, View{Kind: ViewDashboard}, f.h.Views.Current())
	assert.Equal(t, []string{"AAPL", "XOM"}, f.registry.Snapshot())
}

func TestViews_NewHoldingOnShownListFetchesNow(t *testing.T) {
	f := setupAPITest(t)
	tech := f.createList(t, "Tech")
	other := f.createList(t, "Other")
	_, err := f.store.AddHolding(tech, "AAPL", 10)
	require.NoError(t, err)

	_, err = f.h.Views.ShowWatchlist(context.Background(), tech)
	require.NoError(t, err)
	calls := f.provider.Calls()

	code, _ := f.do(t, "POST", "/api/v1/watchlists/1/holdings", map[string]interface{}{"symbol": "MSFT", "shares": 2})
	require.Equal(t, fiber.StatusCreated, code)
	f.h.Views.wg.Wait()
	assert.Equal(t, calls+1, f.provider.Calls())
	w, err := f.store.GetWatchlist(tech)
	require.NoError(t, err)
	h, _ := w.Find("MSFT")
	require.NotNil(t, h.LastPrice)
	assert.Equal(t, 800.0, h.MarketValue)

	// Merging into a tracked symbol recomputes from the last price, no fetch.
	_, err = f.store.AddHolding(tech, "AAPL", 5)
	require.NoError(t, err)
	f.h.Views.wg.Wait()
	assert.Equal(t, calls+1, f.provider.Calls())
	w, _ = f.store.GetWatchlist(tech)
	h, _ = w.Find("AAPL")
	assert.Equal(t, 2250.0, h.MarketValue)

	// Lists that are not on screen are not tracked.
	_, err = f.store.AddHolding(other, "XOM", 1)
	require.NoError(t, err)
	f.h.Views.wg.Wait()
	assert.Equal(t, calls+1, f.provider.Calls())
	assert.Equal(t, []string{"AAPL", "MSFT"}, f.registry.Snapshot())
}

func TestViews_DeletingShownList(t *testing.T) {
	f := setupAPITest(t)
	tech := f.createList(t, "Tech")
	_, err := f.store.AddHolding(tech, "AAPL", 10)
	require.NoError(t, err)
	_, err = f.h.Views.ShowWatchlist(context.Background(), tech)
	require.NoError(t, err)

	code, _ := f.do(t, "DELETE", "/api/v1/watchlists/1", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, ViewNone, f.h.Views.Current().Kind)
	assert.Empty(t, f.registry.Snapshot())

	code, out := f.do(t, "GET", "/api/v1/views/current", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "none", data(out)["kind"])
}

func TestViews_DeleteDropsLateRegistration(t *testing.T) {
	f := setupAPITest(t)
	tech := f.createList(t, "Tech")
	_, err := f.store.AddHolding(tech, "AAPL", 10)
	require.NoError(t, err)
	f.h.Views.ShowDashboard(context.Background())

	f.store.DeleteWatchlist(tech)
	assert.Empty(t, f.registry.Snapshot())

	// A dashboard switch that listed the store before the delete registers
	// the old refs after it; the delete event must clear them.
	f.registry.Register(model.HoldingRef{WatchlistID: tech, Symbol: "AAPL"})
	f.h.Views.onEvent(portfolio.Event{Kind: portfolio.EventWatchlistDeleted, WatchlistID: tech})
	assert.Empty(t, f.registry.Snapshot())
	assert.Equal(t, ViewDashboard, f.h.Views.Current().Kind)
}

func TestRefreshQuotes(t *testing.T) {
	f := setupAPITest(t)
	tech := f.createList(t, "Tech")
	_, err := f.store.AddHolding(tech, "AAPL", 10)
	require.NoError(t, err)
	f.registry.Register(model.HoldingRef{WatchlistID: tech, Symbol: "AAPL"})

	code, out := f.do(t, "POST", "/api/v1/quotes/refresh", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "applied", data(out)["status"])

	f.provider.SetError(errors.New("upstream timeout"))
	code, out = f.do(t, "POST", "/api/v1/quotes/refresh", nil)
	assert.Equal(t, fiber.StatusBadGateway, code)
	assert.Contains(t, out["error"].(map[string]interface{})["message"], "upstream timeout")

	code, out = f.do(t, "GET", "/health", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, "mock", out["provider"])
	assert.Equal(t, 1.0, out["tracked_symbols"])
	assert.Contains(t, out["last_error"], "upstream timeout")

	code, out = f.do(t, "GET", "/api/v1/quotes/aapl/history?limit=10", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 1.0, out["metadata"].(map[string]interface{})["count"])

	code, _ = f.do(t, "GET", "/api/v1/quotes/aapl/history?limit=0", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, out = f.do(t, "GET", "/api/v1/quotes/none/history", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, out["data"])
}

func TestCompaniesAndDashboard(t *testing.T) {
	f := setupAPITest(t)

	code, out := f.do(t, "GET", "/api/v1/companies", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.NotEmpty(t, out["data"])

	code, out = f.do(t, "GET", "/api/v1/dashboard", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, 0.0, data(out)["market_value"])
}

func TestMetricsAndTracing(t *testing.T) {
	f := setupAPITest(t)
	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "stockdog_test_registry_symbols")
}

func TestUnknownRoute(t *testing.T) {
	f := setupAPITest(t)
	code, out := f.do(t, "GET", "/api/v1/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "error", out["status"])
}
