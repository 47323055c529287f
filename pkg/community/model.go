package community

import (
	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/ilp"
)

// cut is a connectivity cut discovered in an earlier round. It is stored
// as vertex data and replayed into every rebuilt model: whenever the
// representatives a and b both land in the community, at least one vertex
// of the recorded boundary must join them.
type cut struct {
	community int   // community label, unused for subgraph cuts
	boundary  []int // neighbors of a's component, outside it
	a, b      int   // lowest vertices of two components that were split
}

// buildPartitionModel encodes the k-community problem over g as binary
// assignment variables x[v][c]. The returned matrix is vertex-major, so
// variable numbering is deterministic across rounds.
func buildPartitionModel(g *graph.Graph, k int, generalized bool, cuts []cut) (*ilp.Model, [][]ilp.Var) {
	n := g.N()
	m := ilp.NewModel()
	x := make([][]ilp.Var, n)
	for v := 0; v < n; v++ {
		x[v] = m.NewBinaries(k)
	}

	// Each vertex takes exactly one label.
	for v := 0; v < n; v++ {
		terms := make([]ilp.Term, k)
		for c := 0; c < k; c++ {
			terms[c] = ilp.Term{Var: x[v][c], Coef: 1}
		}
		m.AddConstraint(terms, ilp.Equal, 1)
	}

	// Member floor per community.
	if !generalized {
		for c := 0; c < k; c++ {
			terms := make([]ilp.Term, n)
			for v := 0; v < n; v++ {
				terms[v] = ilp.Term{Var: x[v][c], Coef: 1}
			}
			m.AddConstraint(terms, ilp.GreaterEq, MinCommunitySize)
		}
	}

	// Dominance: a vertex assigned to c needs strictly more neighbors in
	// c than in any other single community. The strict inequality is
	// linearized with a per-vertex big-M of deg(v)+1, the smallest
	// constant that deactivates the row when x[v][c] is 0. A single
	// label has no rival, so k=1 carries no dominance rows.
	if k >= 2 {
		for v := 0; v < n; v++ {
			neighbors := g.Neighbors(v)
			bigM := g.Degree(v) + 1
			for c := 0; c < k; c++ {
				for rival := 0; rival < k; rival++ {
					if rival == c {
						continue
					}
					terms := make([]ilp.Term, 0, 2*len(neighbors)+1)
					for _, u := range neighbors {
						terms = append(terms, ilp.Term{Var: x[u][c], Coef: 1})
						terms = append(terms, ilp.Term{Var: x[u][rival], Coef: -1})
					}
					terms = append(terms, ilp.Term{Var: x[v][c], Coef: -bigM})
					m.AddConstraint(terms, ilp.GreaterEq, 1-bigM)
				}
			}
		}
	}

	for _, ct := range cuts {
		m.AddConstraint(cutTerms(ct, func(v int) ilp.Var { return x[v][ct.community] }), ilp.GreaterEq, -1)
	}

	return m, x
}

// buildSubgraphModel encodes the maximum-community problem over g as one
// binary membership variable per vertex.
func buildSubgraphModel(g *graph.Graph, cuts []cut) (*ilp.Model, []ilp.Var) {
	n := g.N()
	m := ilp.NewModel()
	s := m.NewBinaries(n)

	all := make([]ilp.Term, n)
	for v := 0; v < n; v++ {
		all[v] = ilp.Term{Var: s[v], Coef: 1}
	}

	// Proper subset: at least two members and at least one outsider.
	m.AddConstraint(all, ilp.GreaterEq, MinCommunitySize)
	m.AddConstraint(all, ilp.LessEq, n-1)

	// Dominance toward the outside: a member needs strictly more
	// neighbors inside the set than outside. With inside+outside=deg(v)
	// that is 2*inside >= deg(v)+1, deactivated by the same deg(v)+1
	// big-M when s[v] is 0.
	for v := 0; v < n; v++ {
		neighbors := g.Neighbors(v)
		deg := g.Degree(v)
		bigM := deg + 1
		terms := make([]ilp.Term, 0, len(neighbors)+1)
		for _, u := range neighbors {
			terms = append(terms, ilp.Term{Var: s[u], Coef: 2})
		}
		terms = append(terms, ilp.Term{Var: s[v], Coef: -bigM})
		m.AddConstraint(terms, ilp.GreaterEq, 1-bigM+deg)
	}

	for _, ct := range cuts {
		m.AddConstraint(cutTerms(ct, func(v int) ilp.Var { return s[v] }), ilp.GreaterEq, -1)
	}

	m.SetObjective(ilp.Maximize, all)

	return m, s
}

// cutTerms renders a stored cut against the current round's variables:
// sum over the boundary minus both representatives, compared against -1.
func cutTerms(ct cut, v func(int) ilp.Var) []ilp.Term {
	terms := make([]ilp.Term, 0, len(ct.boundary)+2)
	for _, u := range ct.boundary {
		terms = append(terms, ilp.Term{Var: v(u), Coef: 1})
	}
	terms = append(terms, ilp.Term{Var: v(ct.a), Coef: -1})
	terms = append(terms, ilp.Term{Var: v(ct.b), Coef: -1})
	return terms
}
