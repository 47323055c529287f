package server

import (
	"net/http"
	"strconv"
	"time"
)

// metricsMiddleware feeds every request into the Prometheus registry:
// a count by method, path and status, a latency histogram and a
// response size histogram.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.registry.HTTPRequestsInFlight.Inc()
		defer s.registry.HTTPRequestsInFlight.Dec()

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.registry.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
		s.registry.HTTPResponseSizeBytes.
			WithLabelValues(r.Method, r.URL.Path).
			Observe(float64(rec.bytes))
	})
}

// responseRecorder remembers the status code and body size that passed
// through, since net/http offers no way to read them back off a
// ResponseWriter.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *responseRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *responseRecorder) Write(p []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(p)
	rec.bytes += n
	return n, err
}

// systemMetricsLoop refreshes the uptime and runtime gauges until the
// process exits.
func (s *Server) systemMetricsLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.registry.UpdateSystemMetrics(s.startTime)
	}
}
