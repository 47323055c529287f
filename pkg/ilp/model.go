// Package ilp models 0/1 integer linear programs and solves them through a
// pluggable solver backend. Models hold binary variables, integer linear
// constraints and an optional linear objective; the default backend
// translates them to pseudo-Boolean form for the gophersat engine.
package ilp

// Var identifies a binary decision variable in a Model. Variables are
// numbered from 1, matching pseudo-Boolean solver conventions.
type Var int

// Relation is the comparison operator of a linear constraint.
type Relation int

const (
	LessEq Relation = iota
	GreaterEq
	Equal
)

// String returns the operator symbol.
func (r Relation) String() string {
	switch r {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Direction selects whether the objective is minimized or maximized.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

// Term is one weighted variable of a linear expression.
type Term struct {
	Var  Var
	Coef int
}

// Constraint is a single integer linear constraint over binary variables.
type Constraint struct {
	Terms []Term
	Rel   Relation
	RHS   int
}

// Objective is a linear objective with a direction.
type Objective struct {
	Direction Direction
	Terms     []Term
}

// Model is a 0/1 integer linear program under construction. It is built
// for a single solve and is not safe for concurrent mutation.
type Model struct {
	vars        int
	constraints []Constraint
	objective   *Objective
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewBinary adds a binary variable and returns its reference.
func (m *Model) NewBinary() Var {
	m.vars++
	return Var(m.vars)
}

// NewBinaries adds n binary variables and returns their references.
func (m *Model) NewBinaries(n int) []Var {
	vars := make([]Var, n)
	for i := range vars {
		vars[i] = m.NewBinary()
	}
	return vars
}

// AddConstraint appends the constraint "sum(terms) rel rhs". The terms
// slice is retained by the model.
func (m *Model) AddConstraint(terms []Term, rel Relation, rhs int) {
	m.constraints = append(m.constraints, Constraint{Terms: terms, Rel: rel, RHS: rhs})
}

// SetObjective sets the linear objective, replacing any previous one.
func (m *Model) SetObjective(dir Direction, terms []Term) {
	m.objective = &Objective{Direction: dir, Terms: terms}
}

// NumVars returns the number of variables added so far.
func (m *Model) NumVars() int { return m.vars }

// NumConstraints returns the number of constraints added so far.
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Constraints returns the constraints in insertion order. The returned
// slice is shared and must not be modified.
func (m *Model) Constraints() []Constraint { return m.constraints }

// Objective returns the objective, or nil for pure feasibility models.
func (m *Model) Objective() *Objective { return m.objective }
