package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) registerSolveMetrics() {
	r.SolvesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "communities_solves_total",
			Help: "Total number of detection runs",
		},
		[]string{"variant", "status"},
	)

	r.SolveDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_solve_duration_seconds",
			Help:    "Detection run duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"variant"},
	)

	r.SolvesInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "communities_solves_in_flight",
			Help: "Current number of detection runs being solved",
		},
	)

	r.ModelVariables = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_model_variables",
			Help:    "Number of binary variables per built model",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"variant"},
	)

	r.ModelConstraints = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_model_constraints",
			Help:    "Number of constraints per built model",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
		},
		[]string{"variant"},
	)

	r.CutRounds = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_cut_rounds",
			Help:    "Solver rounds per run, including connectivity re-solves",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"variant"},
	)

	r.CutsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "communities_connectivity_cuts_total",
			Help: "Total number of connectivity cuts added across runs",
		},
		[]string{"variant"},
	)

	r.CommunitySize = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "communities_community_size",
			Help:    "Size of each detected community",
			Buckets: []float64{2, 4, 8, 16, 32, 64, 128, 256},
		},
		[]string{"variant"},
	)
}
