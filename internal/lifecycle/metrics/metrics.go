package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for lifecycle transitions. Rejections are
// labeled by reason so illegal jumps and lost races can be told apart.
type Metrics struct {
	TransitionsAccepted *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec
}

// New creates a Metrics instance with all lifecycle metrics registered.
func New() *Metrics {
	return &Metrics{
		TransitionsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "phdpeer_lifecycle_transitions_accepted_total",
			Help: "Total number of accepted state transitions",
		}, []string{"kind"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "phdpeer_lifecycle_transitions_rejected_total",
			Help: "Total number of rejected state transitions",
		}, []string{"kind", "reason"}),
	}
}

// IncrementAccepted records an accepted transition for a kind.
func (m *Metrics) IncrementAccepted(kind string) {
	m.TransitionsAccepted.WithLabelValues(kind).Inc()
}

// IncrementRejected records a rejected transition for a kind and reason
// ("illegal" or "conflict").
func (m *Metrics) IncrementRejected(kind, reason string) {
	m.TransitionsRejected.WithLabelValues(kind, reason).Inc()
}
