package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordSolve records a finished detection run. Status is one of
// optimal, infeasible, timeout or error.
func (r *Registry) RecordSolve(variant, status string, duration time.Duration) {
	r.SolvesTotal.WithLabelValues(variant, status).Inc()
	r.SolveDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordModelSize records the dimensions of a built model
func (r *Registry) RecordModelSize(variant string, variables, constraints int) {
	r.ModelVariables.WithLabelValues(variant).Observe(float64(variables))
	r.ModelConstraints.WithLabelValues(variant).Observe(float64(constraints))
}

// RecordCutRounds records how many rounds and connectivity cuts a run took
func (r *Registry) RecordCutRounds(variant string, rounds, cuts int) {
	r.CutRounds.WithLabelValues(variant).Observe(float64(rounds))
	if cuts > 0 {
		r.CutsTotal.WithLabelValues(variant).Add(float64(cuts))
	}
}

// RecordCommunitySize records the size of one detected community
func (r *Registry) RecordCommunitySize(variant string, size int) {
	r.CommunitySize.WithLabelValues(variant).Observe(float64(size))
}

// RecordArchiveWrite records one archived result and its encoded size
func (r *Registry) RecordArchiveWrite(destination, status string, bytes int) {
	r.ArchiveWritesTotal.WithLabelValues(destination, status).Inc()
	if bytes > 0 {
		r.ArchiveWriteBytes.WithLabelValues(destination).Observe(float64(bytes))
	}
}

// RecordRemoteRequest records a remote worker round trip
func (r *Registry) RecordRemoteRequest(operation, status string, duration time.Duration) {
	r.RemoteRequestsTotal.WithLabelValues(operation, status).Inc()
	r.RemoteRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateSystemMetrics refreshes the process-level gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}
