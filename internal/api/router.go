package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// NewApp builds the fiber app with every route mounted. metricsHandler may
// be nil.
func NewApp(h *Handlers, metricsHandler http.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(Tracing())
	app.Use(RouteLogger())

	app.Get("/health", h.Health)
	if metricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))
	}

	v1 := app.Group("/api/v1")
	v1.Get("/companies", h.Companies)
	v1.Get("/dashboard", h.DashboardOverview)

	wl := v1.Group("/watchlists")
	wl.Get("/", h.ListWatchlists)
	wl.Post("/", h.CreateWatchlist)
	wl.Get("/:id", h.GetWatchlist)
	wl.Delete("/:id", h.DeleteWatchlist)
	wl.Post("/:id/holdings", h.AddHolding)
	wl.Patch("/:id/holdings/:symbol", h.UpdateHolding)
	wl.Delete("/:id/holdings/:symbol", h.RemoveHolding)

	views := v1.Group("/views")
	views.Get("/current", h.CurrentView)
	views.Post("/dashboard", h.ShowDashboard)
	views.Post("/watchlists/:id", h.ShowWatchlist)

	quotes := v1.Group("/quotes")
	quotes.Post("/refresh", h.RefreshQuotes)
	quotes.Get("/:symbol/history", h.QuoteHistory)

	return app
}
