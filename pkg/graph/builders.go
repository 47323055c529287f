package graph

// Constructors for common graph shapes, used by tests, demos and the TUI.
// All of them produce valid simple graphs by construction.

// Complete returns the complete graph K_n.
func Complete(n int) *Graph {
	edges := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}
	return assemble(n, edges)
}

// Path returns the path graph 0-1-...-(n-1).
func Path(n int) *Graph {
	edges := make([][2]int, 0, n-1)
	for i := 0; i+1 < n; i++ {
		edges = append(edges, [2]int{i, i + 1})
	}
	return assemble(n, edges)
}

// Cycle returns the cycle graph C_n. For n < 3 it degenerates to a path.
func Cycle(n int) *Graph {
	if n < 3 {
		return Path(n)
	}
	edges := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, [2]int{i, (i + 1) % n})
	}
	return assemble(n, edges)
}

// Star returns the star graph with center 0 and n-1 leaves.
func Star(n int) *Graph {
	edges := make([][2]int, 0, n-1)
	for i := 1; i < n; i++ {
		edges = append(edges, [2]int{0, i})
	}
	return assemble(n, edges)
}

// Disjoint returns the disjoint union of a and b, with b's vertices
// renumbered to start at a.N().
func Disjoint(a, b *Graph) *Graph {
	offset := a.n
	edges := make([][2]int, 0, a.edges+b.edges)
	for v := 0; v < a.n; v++ {
		for _, u := range a.neighbors[v] {
			if v < u {
				edges = append(edges, [2]int{v, u})
			}
		}
	}
	for v := 0; v < b.n; v++ {
		for _, u := range b.neighbors[v] {
			if v < u {
				edges = append(edges, [2]int{v + offset, u + offset})
			}
		}
	}
	return assemble(a.n+b.n, edges)
}
