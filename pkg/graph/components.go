package graph

import (
	"container/list"
	"sort"
)

// Components returns the connected components of the whole graph. Each
// component is sorted ascending; components are ordered by their smallest
// vertex.
func (g *Graph) Components() [][]int {
	all := make([]int, g.n)
	for v := range all {
		all[v] = v
	}
	return g.InducedComponents(all)
}

// InducedComponents returns the connected components of the subgraph
// induced by members. Vertices outside members are ignored entirely.
// Components are discovered in member order and sorted ascending.
func (g *Graph) InducedComponents(members []int) [][]int {
	inSet := make([]bool, g.n)
	for _, v := range members {
		inSet[v] = true
	}

	visited := make([]bool, g.n)
	components := make([][]int, 0)

	// BFS from each unvisited member
	for _, start := range members {
		if visited[start] {
			continue
		}
		visited[start] = true

		component := make([]int, 0)
		queue := list.New()
		queue.PushBack(start)

		for queue.Len() > 0 {
			v := queue.Remove(queue.Front()).(int)
			component = append(component, v)

			for _, u := range g.neighbors[v] {
				if inSet[u] && !visited[u] {
					visited[u] = true
					queue.PushBack(u)
				}
			}
		}

		sort.Ints(component)
		components = append(components, component)
	}

	return components
}

// Boundary returns the vertices outside set that have at least one
// neighbor inside set, in ascending order.
func (g *Graph) Boundary(set []int) []int {
	inSet := make([]bool, g.n)
	for _, v := range set {
		inSet[v] = true
	}

	onBoundary := make([]bool, g.n)
	for _, v := range set {
		for _, u := range g.neighbors[v] {
			if !inSet[u] {
				onBoundary[u] = true
			}
		}
	}

	boundary := make([]int, 0)
	for v := 0; v < g.n; v++ {
		if onBoundary[v] {
			boundary = append(boundary, v)
		}
	}
	return boundary
}
