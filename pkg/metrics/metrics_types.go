package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric family the service exports. Solve
// metrics sit first: they are the point of the service, the rest is
// plumbing around them.
type Registry struct {
	// Detection runs
	SolvesTotal      *prometheus.CounterVec
	SolveDuration    *prometheus.HistogramVec
	SolvesInFlight   prometheus.Gauge
	ModelVariables   *prometheus.HistogramVec
	ModelConstraints *prometheus.HistogramVec
	CutRounds        *prometheus.HistogramVec
	CutsTotal        *prometheus.CounterVec
	CommunitySize    *prometheus.HistogramVec

	// HTTP surface
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Result archive
	ArchiveWritesTotal *prometheus.CounterVec
	ArchiveWriteBytes  *prometheus.HistogramVec

	// Remote workers
	RemoteRequestsTotal   *prometheus.CounterVec
	RemoteRequestDuration *prometheus.HistogramVec

	// Process
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

// DefaultRegistry returns the shared process-wide registry, creating it
// on first use.
var DefaultRegistry = sync.OnceValue(NewRegistry)

// NewRegistry builds a registry with every family registered. Tests use
// fresh instances so counters start at zero.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.registerSolveMetrics()
	r.registerHTTPMetrics()
	r.registerArchiveMetrics()
	r.registerRemoteMetrics()
	r.registerSystemMetrics()

	return r
}

// Prometheus exposes the underlying registry for exposition handlers.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}
