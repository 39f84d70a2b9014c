package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the query façade.
type Metrics struct {
	Requests *prometheus.CounterVec
	Denied   *prometheus.CounterVec
}

// New creates a Metrics instance with all query metrics registered.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "phdpeer_query_requests_total",
			Help: "Total number of read requests served, by operation",
		}, []string{"operation"}),
		Denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "phdpeer_query_denied_total",
			Help: "Total number of read requests refused by role, by operation",
		}, []string{"operation"}),
	}
}

// IncrementRequests records a served read.
func (m *Metrics) IncrementRequests(operation string) {
	m.Requests.WithLabelValues(operation).Inc()
}

// IncrementDenied records a role refusal.
func (m *Metrics) IncrementDenied(operation string) {
	m.Denied.WithLabelValues(operation).Inc()
}
