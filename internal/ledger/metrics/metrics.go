package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger module. Suppressed emits are
// counted so the availability-over-completeness path stays visible.
type Metrics struct {
	EventsEmitted    *prometheus.CounterVec
	EventsSuppressed prometheus.Counter
	QueryDuration    prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "phdpeer_ledger_events_emitted_total",
			Help: "Total number of facts appended to the ledger",
		}, []string{"event_type"}),
		EventsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "phdpeer_ledger_events_suppressed_total",
			Help: "Total number of unsupported events dropped by EmitOrIgnore",
		}),
		QueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "phdpeer_ledger_query_duration_seconds",
			Help:    "Duration of ledger list queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementEmitted records a successful append for an event type.
func (m *Metrics) IncrementEmitted(eventType string) {
	m.EventsEmitted.WithLabelValues(eventType).Inc()
}

// IncrementSuppressed records a dropped event on the EmitOrIgnore path.
func (m *Metrics) IncrementSuppressed() {
	m.EventsSuppressed.Inc()
}

// ObserveQuery records the duration of a list query.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveQuery(start time.Time) {
	m.QueryDuration.Observe(time.Since(start).Seconds())
}
