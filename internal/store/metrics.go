package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the wishlist store collectors. A nil *Metrics records nothing.
type Metrics struct {
	transitions       *prometheus.CounterVec
	hydrationFailures *prometheus.CounterVec
	persistWrites     prometheus.Counter
	persistErrors     prometheus.Counter
	persistDuration   prometheus.Histogram
}

// NewMetrics registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wishlist_transitions_total",
			Help: "Total number of effective wishlist state transitions",
		}, []string{"action"}),
		hydrationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wishlist_hydration_failures_total",
			Help: "Total number of hydrations that fell back to an empty wishlist",
		}, []string{"reason"}),
		persistWrites: f.NewCounter(prometheus.CounterOpts{
			Name: "wishlist_persist_writes_total",
			Help: "Total number of wishlist snapshots written to the backend",
		}),
		persistErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "wishlist_persist_errors_total",
			Help: "Total number of failed wishlist snapshot writes",
		}),
		persistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "wishlist_persist_duration_seconds",
			Help:    "Duration of wishlist snapshot writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) transition(action ActionType) {
	if m != nil {
		m.transitions.WithLabelValues(string(action)).Inc()
	}
}

func (m *Metrics) hydrationFailed(reason string) {
	if m != nil {
		m.hydrationFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) persisted(seconds float64, err error) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(seconds)
	if err != nil {
		m.persistErrors.Inc()
		return
	}
	m.persistWrites.Inc()
}
