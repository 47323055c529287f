package ilp

import (
	"context"
	"time"

	"github.com/crillab/gophersat/solver"
)

// PBSolver solves models with the gophersat pseudo-Boolean engine. The
// zero value is ready to use and keeps no state between calls.
type PBSolver struct{}

// NewPBSolver returns the default pseudo-Boolean solver backend.
func NewPBSolver() *PBSolver {
	return &PBSolver{}
}

// Solve translates the model to pseudo-Boolean constraints and runs the
// gophersat optimizer. The context and time limit feed the engine's stop
// channel; the incumbent stream is drained so a cut-off search still
// surfaces its best assignment.
func (ps *PBSolver) Solve(ctx context.Context, m *Model, timeLimit time.Duration) (*Solution, error) {
	if m == nil || m.NumVars() == 0 {
		return nil, ErrEmptyModel
	}
	if ctx.Err() != nil {
		return NewSolution(StatusTimeout, nil), nil
	}

	constrs, unsat := pbConstraints(m)
	if unsat {
		// A single row already excludes every assignment
		return NewSolution(StatusInfeasible, nil), nil
	}

	pb := solver.ParsePBConstrs(constrs)
	if obj := m.Objective(); obj != nil {
		lits, weights := costFunction(obj)
		if len(lits) > 0 {
			pb.SetCostFunc(lits, weights)
		}
	}
	s := solver.New(pb)

	var cancel context.CancelFunc
	solveCtx := ctx
	if timeLimit > 0 {
		solveCtx, cancel = context.WithTimeout(ctx, timeLimit)
	} else {
		solveCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	stop := make(chan struct{})
	go func() {
		<-solveCtx.Done()
		close(stop)
	}()

	// Optimal closes results before returning, so the drain goroutine
	// always terminates and hands over the last incumbent.
	results := make(chan solver.Result)
	incumbent := make(chan solver.Result, 1)
	go func() {
		best := solver.Result{Status: solver.Indet}
		for r := range results {
			if r.Status == solver.Sat {
				best = r
			}
		}
		incumbent <- best
	}()

	final := s.Optimal(results, stop)
	interrupted := solveCtx.Err() != nil
	best := <-incumbent

	switch {
	case final.Status == solver.Unsat:
		return NewSolution(StatusInfeasible, nil), nil
	case final.Status == solver.Sat && !interrupted:
		return NewSolution(StatusOptimal, assignment(final.Model, m.NumVars())), nil
	case final.Status == solver.Sat:
		// Finished right at the deadline; report the weaker outcome
		return NewSolution(StatusTimeout, assignment(final.Model, m.NumVars())), nil
	case best.Status == solver.Sat:
		return NewSolution(StatusTimeout, assignment(best.Model, m.NumVars())), nil
	default:
		return NewSolution(StatusTimeout, nil), nil
	}
}

// pbConstraints normalizes the model's constraints into pseudo-Boolean
// "at least" rows with positive weights. Negative coefficients become
// negated literals with a shifted bound. The second return value is true
// when some row is unsatisfiable on its own, which makes the whole model
// infeasible without invoking the engine.
func pbConstraints(m *Model) ([]solver.PBConstr, bool) {
	constrs := make([]solver.PBConstr, 0, 2*len(m.Constraints()))
	unsat := false

	addGE := func(terms []Term, rhs int) {
		lits := make([]int, 0, len(terms))
		weights := make([]int, 0, len(terms))
		atLeast := rhs
		sum := 0
		for _, t := range terms {
			switch {
			case t.Coef > 0:
				lits = append(lits, int(t.Var))
				weights = append(weights, t.Coef)
				sum += t.Coef
			case t.Coef < 0:
				// -w*x == w*(1-x) - w, so count the negated literal
				// and shift the bound
				lits = append(lits, -int(t.Var))
				weights = append(weights, -t.Coef)
				atLeast += -t.Coef
				sum += -t.Coef
			}
		}
		if atLeast <= 0 {
			return // trivially satisfied
		}
		if atLeast > sum {
			unsat = true
			return
		}
		constrs = append(constrs, solver.GtEq(lits, weights, atLeast))
	}

	for _, c := range m.Constraints() {
		switch c.Rel {
		case GreaterEq:
			addGE(c.Terms, c.RHS)
		case LessEq:
			addGE(negateTerms(c.Terms), -c.RHS)
		case Equal:
			addGE(c.Terms, c.RHS)
			addGE(negateTerms(c.Terms), -c.RHS)
		}
		if unsat {
			return nil, true
		}
	}

	return constrs, false
}

func negateTerms(terms []Term) []Term {
	neg := make([]Term, len(terms))
	for i, t := range terms {
		neg[i] = Term{Var: t.Var, Coef: -t.Coef}
	}
	return neg
}

// costFunction translates the objective into gophersat cost literals.
// Maximization is turned into minimization of the negated expression;
// either way every cost literal carries a positive weight, with constant
// shifts dropped since only the argmin matters.
func costFunction(obj *Objective) ([]solver.Lit, []int) {
	lits := make([]solver.Lit, 0, len(obj.Terms))
	weights := make([]int, 0, len(obj.Terms))
	for _, t := range obj.Terms {
		w := t.Coef
		if obj.Direction == Maximize {
			w = -w
		}
		switch {
		case w > 0:
			lits = append(lits, solver.IntToLit(int32(t.Var)))
			weights = append(weights, w)
		case w < 0:
			lits = append(lits, solver.IntToLit(-int32(t.Var)))
			weights = append(weights, -w)
		}
	}
	return lits, weights
}

// assignment extracts a dense variable assignment from a solver model.
func assignment(model solver.ModelMap, n int) []bool {
	values := make([]bool, n)
	for key, val := range model {
		idx, ok := key.(int)
		if !ok || idx < 1 || idx > n {
			continue
		}
		values[idx-1] = val
	}
	return values
}
