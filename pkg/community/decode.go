package community

import (
	"fmt"

	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/ilp"
)

// decodePartition rounds a solver assignment into a Partition. Member
// lists come out ascending because vertices are visited in order.
func decodePartition(g *graph.Graph, sol *ilp.Solution, x [][]ilp.Var, k int) (*Partition, error) {
	n := g.N()
	labels := make([]int, n)
	members := make([][]int, k)
	for c := range members {
		members[c] = []int{}
	}
	for v := 0; v < n; v++ {
		label := -1
		for c := 0; c < k; c++ {
			if sol.True(x[v][c]) {
				if label >= 0 {
					return nil, fmt.Errorf("vertex %d decoded into communities %d and %d", v, label, c)
				}
				label = c
			}
		}
		if label < 0 {
			return nil, fmt.Errorf("vertex %d decoded into no community", v)
		}
		labels[v] = label
		members[label] = append(members[label], v)
	}
	return &Partition{Members: members, Labels: labels}, nil
}

// decodeSubgraph rounds a solver assignment into the selected vertex
// set, ascending.
func decodeSubgraph(g *graph.Graph, sol *ilp.Solution, s []ilp.Var) []int {
	vertices := []int{}
	for v := 0; v < g.N(); v++ {
		if sol.True(s[v]) {
			vertices = append(vertices, v)
		}
	}
	return vertices
}
