package community

import "time"

// Partition is a labeled division of a graph into communities. Every
// vertex in community c has strictly more neighbors inside c than inside
// any other single community.
type Partition struct {
	// Members lists each community's vertices in ascending order,
	// indexed by label. Empty lists only occur in generalized runs.
	Members [][]int `json:"members"`

	// Labels maps each vertex to its community label.
	Labels []int `json:"labels"`

	// Optimal is false only for incumbents taken from a timed-out
	// search. Results returned without error always have it set.
	Optimal bool `json:"optimal"`

	// Rounds counts solver invocations: one plus the number of
	// connectivity re-solves.
	Rounds int `json:"rounds"`

	// Cuts counts the connectivity cuts accumulated across rounds.
	Cuts int `json:"cuts"`

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration `json:"duration"`
}

// CommunityCount returns the number of non-empty communities.
func (p *Partition) CommunityCount() int {
	count := 0
	for _, members := range p.Members {
		if len(members) > 0 {
			count++
		}
	}
	return count
}

// Subgraph is a single detected community inside a larger graph. Every
// member has strictly more neighbors inside the set than outside it.
type Subgraph struct {
	// Vertices lists the members in ascending order.
	Vertices []int `json:"vertices"`

	// Optimal is false only for incumbents taken from a timed-out
	// search; such a set satisfies every constraint but a larger one
	// may exist.
	Optimal bool `json:"optimal"`

	// Rounds counts solver invocations: one plus the number of
	// connectivity re-solves.
	Rounds int `json:"rounds"`

	// Cuts counts the connectivity cuts accumulated across rounds.
	Cuts int `json:"cuts"`

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration `json:"duration"`
}

// Size returns the number of vertices in the subgraph.
func (s *Subgraph) Size() int {
	return len(s.Vertices)
}
