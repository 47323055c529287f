package community

import (
	"time"

	"github.com/dd0wney/cluso-communities/pkg/ilp"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/metrics"
)

// Variant identifies one of the four detection problems.
type Variant string

// Detection variants
const (
	VariantKCommunity            Variant = "k_community"
	VariantConnectedKCommunity   Variant = "connected_k_community"
	VariantMaxCommunity          Variant = "max_community"
	VariantConnectedMaxCommunity Variant = "connected_max_community"
)

// Detection defaults and bounds
const (
	// MinCommunitySize is the member floor for partition communities.
	// Generalized runs drop it, everything else enforces it.
	MinCommunitySize = 2

	// DefaultTimeLimit bounds a detection run when the caller does not
	// set one explicitly.
	DefaultTimeLimit = 60 * time.Second

	// minCutRounds keeps the connectivity round cap usable on tiny graphs
	// where twice the vertex count would be too tight.
	minCutRounds = 8

	// cutRoundsPerVertex scales the connectivity round cap with the
	// graph. Each round adds at least one cut that excludes the previous
	// assignment, so the loop terminates well before an exponential
	// bound; the cap is a circuit breaker, not a tuning knob.
	cutRoundsPerVertex = 2
)

// Options configures a detection run. The zero value is usable: it runs
// with the default solver, the default time limit and the member floor
// enforced.
type Options struct {
	// TimeLimit bounds the whole run including connectivity cut rounds.
	// Zero means DefaultTimeLimit; negative means no limit.
	TimeLimit time.Duration

	// Generalized drops the two-member floor on partition communities,
	// allowing some of the k labels to go unused. It has no effect on
	// the max-community variants.
	Generalized bool

	// MaxCutRounds caps connectivity re-solves. Zero picks a cap
	// proportional to the vertex count.
	MaxCutRounds int

	// Solver overrides the pseudo-Boolean backend. Nil uses the default.
	Solver ilp.Solver

	// Logger overrides the default logger.
	Logger logging.Logger

	// Metrics overrides the default metrics registry.
	Metrics *metrics.Registry
}

// DefaultOptions returns the default detection configuration.
func DefaultOptions() Options {
	return Options{
		TimeLimit: DefaultTimeLimit,
	}
}

// withDefaults fills unset fields for a graph of n vertices.
func (o Options) withDefaults(n int) Options {
	if o.TimeLimit == 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.TimeLimit < 0 {
		o.TimeLimit = 0
	}
	if o.MaxCutRounds <= 0 {
		o.MaxCutRounds = cutRoundsPerVertex * n
		if o.MaxCutRounds < minCutRounds {
			o.MaxCutRounds = minCutRounds
		}
	}
	if o.Solver == nil {
		o.Solver = ilp.NewPBSolver()
	}
	if o.Logger == nil {
		o.Logger = logging.DefaultLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.DefaultRegistry()
	}
	return o
}
