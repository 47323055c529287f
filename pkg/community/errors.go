package community

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// Common sentinel errors
var (
	// ErrInvalidInput rejects malformed graphs or out-of-range parameters.
	// It is raised before any model is built and is never worth retrying.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInfeasible means the solver proved that no structure satisfying
	// every constraint exists. Retrying cannot change the outcome.
	ErrInfeasible = errors.New("no feasible community structure")
)

// TimeoutError reports an inconclusive search: the time budget ran out
// before the solver reached a proof. When the cut-off search produced a
// usable incumbent it is attached, already validated but with optimality
// unproven (its Optimal flag is false).
type TimeoutError struct {
	Limit     time.Duration
	Partition *Partition
	Subgraph  *Subgraph
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	hasIncumbent := e.Partition != nil || e.Subgraph != nil
	switch {
	case e.Limit > 0 && hasIncumbent:
		return fmt.Sprintf("solve exceeded the %v time limit; best incumbent attached, optimality unproven", e.Limit)
	case e.Limit > 0:
		return fmt.Sprintf("solve exceeded the %v time limit with no incumbent", e.Limit)
	case hasIncumbent:
		return "solve canceled; best incumbent attached, optimality unproven"
	default:
		return "solve canceled with no incumbent"
	}
}

// InconsistencyError is a fatal internal defect: a solver assignment
// decoded into a structure that violates the very constraints the model
// encodes. It indicates a bug in the model builder or the decoder, never
// a problem with the caller's input.
type InconsistencyError struct {
	Variant Variant
	Reason  string
}

// Error implements the error interface.
func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s solution failed re-validation: %s", e.Variant, e.Reason)
}

// CutLimitError is a fatal internal defect: the connectivity cut loop
// failed to converge within its round budget. It is distinct from
// ErrInfeasible, which is a proof about the input rather than a failure
// of the loop.
type CutLimitError struct {
	Variant Variant
	Rounds  int
}

// Error implements the error interface.
func (e *CutLimitError) Error() string {
	return fmt.Sprintf("%s connectivity cuts did not converge after %d rounds", e.Variant, e.Rounds)
}

// IsInvalidInput returns true if the error rejects the caller's input,
// including adjacency matrix validation failures.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, graph.ErrInvalidMatrix)
}

// IsInfeasible returns true if the error is a proven infeasibility.
func IsInfeasible(err error) bool {
	return errors.Is(err, ErrInfeasible)
}

// IsTimeout returns true if the error is an inconclusive timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
