package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Solve endpoints block on the solver, so the duration buckets run far
// past the usual sub-second web range.
func (r *Registry) registerHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "communities_http_requests_total",
			Help: "HTTP requests served, by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_http_request_duration_seconds",
			Help:    "Wall time per HTTP request, including the solve itself",
			Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 15, 60, 300},
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "communities_http_requests_in_flight",
			Help: "Requests currently being handled",
		},
	)

	r.HTTPResponseSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_http_response_size_bytes",
			Help:    "Response body size; grows with vertex count and community count",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		},
		[]string{"method", "path"},
	)
}
