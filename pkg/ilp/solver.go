package ilp

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyModel is returned when a model with no variables is solved.
var ErrEmptyModel = errors.New("model has no variables")

// Status is the outcome of a solve call.
type Status int

const (
	// StatusOptimal means the solver proved optimality (or, for pure
	// feasibility models, found a satisfying assignment).
	StatusOptimal Status = iota
	// StatusInfeasible means the solver proved no assignment exists.
	StatusInfeasible
	// StatusTimeout means the search was cut off before a proof; an
	// incumbent assignment may or may not be attached.
	StatusTimeout
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Solution is the outcome of solving a Model.
type Solution struct {
	Status Status

	values []bool
	has    bool
}

// NewSolution builds a Solution with the given status and, when values is
// non-nil, a complete variable assignment (indexed by Var-1). Useful for
// tests and alternative Solver implementations.
func NewSolution(status Status, values []bool) *Solution {
	return &Solution{Status: status, values: values, has: values != nil}
}

// HasAssignment reports whether the solution carries variable values.
func (s *Solution) HasAssignment() bool { return s.has }

// Value returns the relaxed value of v: 0.0 or 1.0 for an attached
// assignment, 0.0 when no assignment is present or v is out of range.
// Callers round with a > 0.5 threshold.
func (s *Solution) Value(v Var) float64 {
	if !s.has || int(v) < 1 || int(v) > len(s.values) {
		return 0
	}
	if s.values[v-1] {
		return 1
	}
	return 0
}

// True reports whether v rounds to 1 in the attached assignment.
func (s *Solution) True(v Var) bool {
	return s.Value(v) > 0.5
}

// Solver runs a model to proven optimality within a time budget. A zero
// timeLimit means no limit; the context still applies either way.
//
// Implementations return an error only for mechanical failures. The
// mathematical outcome, including infeasibility and timeout, is reported
// through Solution.Status.
type Solver interface {
	Solve(ctx context.Context, m *Model, timeLimit time.Duration) (*Solution, error)
}
