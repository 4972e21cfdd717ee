package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	syncCycles    *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	quotesApplied prometheus.Counter
	persistErrors prometheus.Counter
	registrySize  prometheus.Gauge
	portfolio     *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		syncCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_cycles_total",
				Help:      "Quote synchronization cycles by outcome",
			},
			[]string{"status"},
		),
		syncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of quote synchronization cycles",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		quotesApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holdings_updated_total",
			Help:      "Holdings whose prices were updated from a quote",
		}),
		persistErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Failed writes to the durable store",
		}),
		registrySize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_symbols",
			Help:      "Distinct symbols in the last registry snapshot",
		}),
		portfolio: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "portfolio_value",
				Help:      "Portfolio totals",
			},
			[]string{"field"},
		),
	}
}

// ObserveCycle records one engine cycle.
func (m *Metrics) ObserveCycle(status string, d time.Duration, applied int) {
	if m == nil {
		return
	}
	m.syncCycles.WithLabelValues(status).Inc()
	m.syncDuration.Observe(d.Seconds())
	m.quotesApplied.Add(float64(applied))
}

func (m *Metrics) SetRegistrySize(n int) {
	if m == nil {
		return
	}
	m.registrySize.Set(float64(n))
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

// SetPortfolio publishes portfolio-wide market value and day change.
func (m *Metrics) SetPortfolio(marketValue, dayChange float64) {
	if m == nil {
		return
	}
	m.portfolio.WithLabelValues("market_value").Set(marketValue)
	m.portfolio.WithLabelValues("day_change").Set(dayChange)
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
