package api

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"StockDog/internal/company"
	"StockDog/internal/dashboard"
	"StockDog/internal/model"
	"StockDog/internal/portfolio"
	"StockDog/internal/quotesync"
	"StockDog/internal/recorder"

	"github.com/gofiber/fiber/v2"
)

// Syncer is the quote sync engine as seen by the API.
type Syncer interface {
	FetchNow(ctx context.Context) quotesync.Result
	State() quotesync.State
	LastResult() quotesync.Result
	Provider() string
}

type Sizer interface {
	Len() int
}

// Handlers bundles the HTTP handlers.
type Handlers struct {
	Store     *portfolio.Store
	Views     *Views
	Dashboard *dashboard.Dashboard
	Engine    Syncer
	Registry  Sizer
	Catalog   *company.Catalog
	Recorder  recorder.Recorder
	Timeout   time.Duration
}

func (h *Handlers) fetchCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(c.UserContext(), timeout)
}

func paramID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: watchlist id must be an integer", portfolio.ErrValidation)
	}
	return id, nil
}

// Health GET /health
func (h *Handlers) Health(c *fiber.Ctx) error {
	last := h.Engine.LastResult()
	out := fiber.Map{
		"status":          "ok",
		"provider":        h.Engine.Provider(),
		"engine":          h.Engine.State().String(),
		"tracked_symbols": h.Registry.Len(),
		"view":            h.Views.Current(),
		"last_persist":    h.Store.LastPersist(),
	}
	if !last.At.IsZero() {
		out["last_cycle"] = last
		if last.Err != nil {
			out["last_error"] = last.Err.Error()
		}
	}
	if last.Status == quotesync.StatusFailed {
		out["status"] = "degraded"
	}
	return c.JSON(out)
}

// Companies GET /api/v1/companies
func (h *Handlers) Companies(c *fiber.Ctx) error {
	all := h.Catalog.All()
	return success(c, "Companies fetched successfully", all, fiber.Map{"count": len(all)})
}

// DashboardOverview GET /api/v1/dashboard
func (h *Handlers) DashboardOverview(c *fiber.Ctx) error {
	return success(c, "Dashboard fetched successfully", h.Dashboard.Overview(), nil)
}

// ListWatchlists GET /api/v1/watchlists
func (h *Handlers) ListWatchlists(c *fiber.Ctx) error {
	lists := h.Store.ListWatchlists()
	return success(c, "Watchlists fetched successfully", lists, fiber.Map{"count": len(lists)})
}

type createWatchlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateWatchlist POST /api/v1/watchlists
func (h *Handlers) CreateWatchlist(c *fiber.Ctx) error {
	var req createWatchlistRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, "Invalid request body", fiber.StatusBadRequest)
	}
	w, err := h.Store.CreateWatchlist(req.Name, req.Description)
	if err != nil {
		return failErr(c, err)
	}
	return created(c, "Watchlist created successfully", w)
}

// GetWatchlist GET /api/v1/watchlists/:id
func (h *Handlers) GetWatchlist(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return failErr(c, err)
	}
	w, err := h.Store.GetWatchlist(id)
	if err != nil {
		return failErr(c, err)
	}
	return success(c, "Watchlist fetched successfully", w, nil)
}

// DeleteWatchlist DELETE /api/v1/watchlists/:id
func (h *Handlers) DeleteWatchlist(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return failErr(c, err)
	}
	h.Store.DeleteWatchlist(id)
	return success(c, "Watchlist deleted successfully", fiber.Map{"id": id}, nil)
}

type holdingRequest struct {
	Symbol string   `json:"symbol"`
	Shares *float64 `json:"shares"`
}

// AddHolding POST /api/v1/watchlists/:id/holdings
func (h *Handlers) AddHolding(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return failErr(c, err)
	}
	var req holdingRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, "Invalid request body", fiber.StatusBadRequest)
	}
	if req.Shares == nil {
		return fail(c, "shares is required", fiber.StatusBadRequest)
	}
	holding, err := h.Store.AddHolding(id, req.Symbol, *req.Shares)
	if err != nil {
		return failErr(c, err)
	}
	return created(c, "Holding saved successfully", holding)
}

// UpdateHolding PATCH /api/v1/watchlists/:id/holdings/:symbol
func (h *Handlers) UpdateHolding(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return failErr(c, err)
	}
	var req holdingRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, "Invalid request body", fiber.StatusBadRequest)
	}
	if req.Shares == nil {
		return fail(c, "shares is required", fiber.StatusBadRequest)
	}
	holding, err := h.Store.UpdateHoldingShares(id, c.Params("symbol"), *req.Shares)
	if err != nil {
		return failErr(c, err)
	}
	return success(c, "Holding updated successfully", holding, nil)
}

// RemoveHolding DELETE /api/v1/watchlists/:id/holdings/:symbol
func (h *Handlers) RemoveHolding(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return failErr(c, err)
	}
	symbol := model.NormalizeSymbol(c.Params("symbol"))
	if err := h.Store.RemoveHolding(id, symbol); err != nil {
		return failErr(c, err)
	}
	return success(c, "Holding removed successfully", fiber.Map{"list_id": id, "symbol": symbol}, nil)
}

// ShowDashboard POST /api/v1/views/dashboard
func (h *Handlers) ShowDashboard(c *fiber.Ctx) error {
	ctx, cancel := h.fetchCtx(c)
	defer cancel()
	res := h.Views.ShowDashboard(ctx)
	return success(c, "Dashboard view active", h.Dashboard.Overview(), fiber.Map{"sync": res})
}

// ShowWatchlist POST /api/v1/views/watchlists/:id
func (h *Handlers) ShowWatchlist(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return failErr(c, err)
	}
	ctx, cancel := h.fetchCtx(c)
	defer cancel()
	res, err := h.Views.ShowWatchlist(ctx, id)
	if err != nil {
		return failErr(c, err)
	}
	w, err := h.Store.GetWatchlist(id)
	if err != nil {
		return failErr(c, err)
	}
	return success(c, "Watchlist view active", w, fiber.Map{"sync": res})
}

// CurrentView GET /api/v1/views/current
func (h *Handlers) CurrentView(c *fiber.Ctx) error {
	return success(c, "Current view", h.Views.Current(), nil)
}

// RefreshQuotes POST /api/v1/quotes/refresh
func (h *Handlers) RefreshQuotes(c *fiber.Ctx) error {
	ctx, cancel := h.fetchCtx(c)
	defer cancel()
	res := h.Engine.FetchNow(ctx)
	if res.Status == quotesync.StatusFailed {
		msg := "quote refresh failed"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return fail(c, msg, fiber.StatusBadGateway)
	}
	return success(c, "Quotes refreshed", res, nil)
}

// QuoteHistory GET /api/v1/quotes/:symbol/history?limit=N
func (h *Handlers) QuoteHistory(c *fiber.Ctx) error {
	symbol := model.NormalizeSymbol(c.Params("symbol"))
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		return fail(c, "limit must be between 1 and 1000", fiber.StatusBadRequest)
	}
	points, err := h.Recorder.QuoteHistory(symbol, limit)
	if err != nil {
		return failErr(c, err)
	}
	if points == nil {
		points = []recorder.QuotePoint{}
	}
	return success(c, "Quote history fetched successfully", points, fiber.Map{"symbol": symbol, "count": len(points)})
}
