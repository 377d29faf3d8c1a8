package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the viewer. Each instance owns
// its registry so tests and restarts never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	LayoutsApplied  *prometheus.CounterVec
	WatchdogReloads *prometheus.CounterVec
	Restarts        prometheus.Counter
}

// NewMetrics creates and registers the viewer collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protect_viewer_runs_total",
				Help: "Adaptation runs by final state",
			},
			[]string{"state"},
		),
		LayoutsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protect_viewer_layouts_applied_total",
				Help: "Layout driver applications by UI generation",
			},
			[]string{"generation"},
		),
		WatchdogReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protect_viewer_watchdog_reloads_total",
				Help: "Page reloads forced by the session watchdog",
			},
			[]string{"reason"},
		),
		Restarts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "protect_viewer_restarts_total",
				Help: "Shell restarts requested by key, reset or configuration save",
			},
		),
	}
}

// RunFinished records the final state of one adaptation run.
func (m *Metrics) RunFinished(state string) { m.RunsTotal.WithLabelValues(state).Inc() }

// LayoutApplied records one layout driver application.
func (m *Metrics) LayoutApplied(generation string) {
	m.LayoutsApplied.WithLabelValues(generation).Inc()
}

// WatchdogReload records a forced reload.
func (m *Metrics) WatchdogReload(reason string) { m.WatchdogReloads.WithLabelValues(reason).Inc() }

// Restarted records a shell restart.
func (m *Metrics) Restarted() { m.Restarts.Inc() }

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
