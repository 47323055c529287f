package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) registerArchiveMetrics() {
	r.ArchiveWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "communities_archive_writes_total",
			Help: "Total number of archived detection results",
		},
		[]string{"destination", "status"},
	)

	r.ArchiveWriteBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_archive_write_bytes",
			Help:    "Compressed size of archived records in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"destination"},
	)
}
