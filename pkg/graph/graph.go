package graph

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidMatrix is returned when an adjacency matrix cannot describe a
// simple undirected graph.
var ErrInvalidMatrix = errors.New("invalid adjacency matrix")

// Graph is an immutable simple undirected graph over vertices 0..n-1.
type Graph struct {
	n         int
	adj       []bool  // n*n row-major adjacency for O(1) edge tests
	neighbors [][]int // ascending neighbor lists
	degrees   []int
	edges     int
}

// FromRows builds a graph from a 0/1 adjacency matrix given as rows.
// The matrix must be square and symmetric, contain only 0 and 1 entries,
// and have a zero diagonal.
func FromRows(rows [][]int) (*Graph, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: matrix is empty", ErrInvalidMatrix)
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrInvalidMatrix, i, len(row), n)
		}
	}

	edges := make([][2]int, 0)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := rows[i][j]
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("%w: entry (%d,%d) is %d, want 0 or 1", ErrInvalidMatrix, i, j, v)
			}
			if i == j && v != 0 {
				return nil, fmt.Errorf("%w: self loop at vertex %d", ErrInvalidMatrix, i)
			}
			if rows[j][i] != v {
				return nil, fmt.Errorf("%w: entries (%d,%d) and (%d,%d) differ", ErrInvalidMatrix, i, j, j, i)
			}
			if v == 1 && i < j {
				edges = append(edges, [2]int{i, j})
			}
		}
	}

	return assemble(n, edges), nil
}

// FromMatrix builds a graph from a gonum adjacency matrix. Entries must be
// exactly 0 or 1; fractional weights are rejected rather than rounded.
func FromMatrix(m mat.Matrix) (*Graph, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: matrix is nil", ErrInvalidMatrix)
	}
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d matrix is not square", ErrInvalidMatrix, r, c)
	}
	if r == 0 {
		return nil, fmt.Errorf("%w: matrix is empty", ErrInvalidMatrix)
	}

	rows := make([][]int, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]int, c)
		for j := 0; j < c; j++ {
			switch v := m.At(i, j); v {
			case 0:
			case 1:
				rows[i][j] = 1
			default:
				return nil, fmt.Errorf("%w: entry (%d,%d) is %v, want 0 or 1", ErrInvalidMatrix, i, j, v)
			}
		}
	}

	return FromRows(rows)
}

// FromEdges builds a graph with n vertices from an explicit edge list.
// Duplicate edges are merged; self loops and out-of-range endpoints are
// rejected.
func FromEdges(n int, edges [][2]int) (*Graph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: vertex count %d", ErrInvalidMatrix, n)
	}

	seen := make(map[[2]int]bool, len(edges))
	clean := make([][2]int, 0, len(edges))
	for _, e := range edges {
		u, v := e[0], e[1]
		if u < 0 || u >= n || v < 0 || v >= n {
			return nil, fmt.Errorf("%w: edge (%d,%d) out of range for %d vertices", ErrInvalidMatrix, u, v, n)
		}
		if u == v {
			return nil, fmt.Errorf("%w: self loop at vertex %d", ErrInvalidMatrix, u)
		}
		if u > v {
			u, v = v, u
		}
		key := [2]int{u, v}
		if seen[key] {
			continue
		}
		seen[key] = true
		clean = append(clean, key)
	}

	return assemble(n, clean), nil
}

// assemble builds the internal representation from a deduplicated edge list
// with valid endpoints.
func assemble(n int, edges [][2]int) *Graph {
	g := &Graph{
		n:         n,
		adj:       make([]bool, n*n),
		neighbors: make([][]int, n),
		degrees:   make([]int, n),
		edges:     len(edges),
	}

	for _, e := range edges {
		u, v := e[0], e[1]
		g.adj[u*n+v] = true
		g.adj[v*n+u] = true
		g.degrees[u]++
		g.degrees[v]++
	}

	for v := 0; v < n; v++ {
		if g.degrees[v] == 0 {
			continue
		}
		list := make([]int, 0, g.degrees[v])
		for u := 0; u < n; u++ {
			if g.adj[v*n+u] {
				list = append(list, u)
			}
		}
		g.neighbors[v] = list
	}

	return g
}

// N returns the number of vertices.
func (g *Graph) N() int { return g.n }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Degree returns the degree of vertex v.
func (g *Graph) Degree(v int) int { return g.degrees[v] }

// Neighbors returns the neighbors of v in ascending order. The returned
// slice is shared and must not be modified.
func (g *Graph) Neighbors(v int) []int { return g.neighbors[v] }

// HasEdge reports whether u and v are adjacent.
func (g *Graph) HasEdge(u, v int) bool { return g.adj[u*g.n+v] }

// Rows returns a fresh 0/1 adjacency matrix for the graph.
func (g *Graph) Rows() [][]int {
	rows := make([][]int, g.n)
	for i := 0; i < g.n; i++ {
		rows[i] = make([]int, g.n)
		for _, u := range g.neighbors[i] {
			rows[i][u] = 1
		}
	}
	return rows
}
