package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments of the dashboards app.
type Metrics struct {
	EventsTotal       *prometheus.CounterVec
	LoadFailuresTotal *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
}

// NewMetrics creates and registers the dashboard metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_events_total",
			Help: "Dashboard telemetry events by name.",
		}, []string{"event"}),
		LoadFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_load_failures_total",
			Help: "Panels or dashboards that failed to load, by reason.",
		}, []string{"reason"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_active_sessions",
			Help: "Open dashboard sessions.",
		}),
	}
	reg.MustRegister(m.EventsTotal, m.LoadFailuresTotal, m.ActiveSessions)
	return m
}
