package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) registerRemoteMetrics() {
	r.RemoteRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "communities_remote_requests_total",
			Help: "Total number of remote worker round trips",
		},
		[]string{"operation", "status"},
	)

	r.RemoteRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_remote_request_duration_seconds",
			Help:    "Remote worker round trip latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1.0, 10.0, 60.0},
		},
		[]string{"operation"},
	)
}
