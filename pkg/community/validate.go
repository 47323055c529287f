package community

import (
	"fmt"

	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// ValidatePartition checks every structural requirement on p against g:
// labels and member lists must agree and cover each vertex exactly once,
// non-generalized communities must meet the member floor, every vertex
// must strictly dominate toward its own community, and with connected
// set, every non-empty community must induce a single component.
//
// Solve results are re-validated with this before being returned, and
// callers holding an externally produced partition can use it directly.
func ValidatePartition(g *graph.Graph, p *Partition, generalized, connected bool) error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if p == nil {
		return fmt.Errorf("partition is nil")
	}
	n := g.N()
	k := len(p.Members)
	if len(p.Labels) != n {
		return fmt.Errorf("partition labels %d vertices, graph has %d", len(p.Labels), n)
	}
	if k == 0 {
		return fmt.Errorf("partition has no communities")
	}

	seen := make([]bool, n)
	for c, members := range p.Members {
		prev := -1
		for _, v := range members {
			if v < 0 || v >= n {
				return fmt.Errorf("community %d contains out-of-range vertex %d", c, v)
			}
			if v <= prev {
				return fmt.Errorf("community %d members not strictly ascending at vertex %d", c, v)
			}
			prev = v
			if seen[v] {
				return fmt.Errorf("vertex %d appears in more than one community", v)
			}
			seen[v] = true
			if p.Labels[v] != c {
				return fmt.Errorf("vertex %d listed in community %d but labeled %d", v, c, p.Labels[v])
			}
		}
		if !generalized && len(members) < MinCommunitySize {
			return fmt.Errorf("community %d has %d members, floor is %d", c, len(members), MinCommunitySize)
		}
	}
	for v := 0; v < n; v++ {
		if !seen[v] {
			return fmt.Errorf("vertex %d missing from every community", v)
		}
	}

	// Dominance against every rival label, occupied or not: an empty
	// rival still forces at least one neighbor in the home community.
	if k >= 2 {
		counts := make([]int, k)
		for v := 0; v < n; v++ {
			for c := range counts {
				counts[c] = 0
			}
			for _, u := range g.Neighbors(v) {
				counts[p.Labels[u]]++
			}
			home := p.Labels[v]
			for rival := 0; rival < k; rival++ {
				if rival == home {
					continue
				}
				if counts[home] <= counts[rival] {
					return fmt.Errorf("vertex %d has %d neighbors in its community %d but %d in community %d",
						v, counts[home], home, counts[rival], rival)
				}
			}
		}
	}

	if connected {
		for c, members := range p.Members {
			if len(members) == 0 {
				continue
			}
			if comps := g.InducedComponents(members); len(comps) > 1 {
				return fmt.Errorf("community %d splits into %d components", c, len(comps))
			}
		}
	}

	return nil
}

// ValidateSubgraph checks every structural requirement on a detected
// community within g: the set must be a proper subset with at least
// MinCommunitySize members, each member must have strictly more
// neighbors inside than outside, and with connected set, the set must
// induce a single component.
func ValidateSubgraph(g *graph.Graph, s *Subgraph, connected bool) error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if s == nil {
		return fmt.Errorf("subgraph is nil")
	}
	n := g.N()
	size := len(s.Vertices)
	if size < MinCommunitySize {
		return fmt.Errorf("subgraph has %d vertices, floor is %d", size, MinCommunitySize)
	}
	if size > n-1 {
		return fmt.Errorf("subgraph with %d vertices is not a proper subset of %d", size, n)
	}

	inside := make(map[int]bool, size)
	prev := -1
	for _, v := range s.Vertices {
		if v < 0 || v >= n {
			return fmt.Errorf("subgraph contains out-of-range vertex %d", v)
		}
		if v <= prev {
			return fmt.Errorf("subgraph vertices not strictly ascending at %d", v)
		}
		prev = v
		inside[v] = true
	}

	for _, v := range s.Vertices {
		in := 0
		for _, u := range g.Neighbors(v) {
			if inside[u] {
				in++
			}
		}
		out := g.Degree(v) - in
		if in <= out {
			return fmt.Errorf("vertex %d has %d neighbors inside but %d outside", v, in, out)
		}
	}

	if connected {
		if comps := g.InducedComponents(s.Vertices); len(comps) > 1 {
			return fmt.Errorf("subgraph splits into %d components", len(comps))
		}
	}

	return nil
}
