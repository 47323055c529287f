package community

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// TestFindMaxCommunity_CompleteGraph tests that K4 yields a community of
// three: the whole vertex set is not a proper subset, and any triple
// dominates 2-to-1
func TestFindMaxCommunity_CompleteGraph(t *testing.T) {
	g := graph.Complete(4)

	sub, err := FindMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("FindMaxCommunity failed: %v", err)
	}

	if sub.Size() != 3 {
		t.Errorf("Expected community of size 3, got %d (%v)", sub.Size(), sub.Vertices)
	}
	if !sub.Optimal {
		t.Error("Expected Optimal to be set on a returned subgraph")
	}

	if verr := ValidateSubgraph(g, sub, false); verr != nil {
		t.Errorf("Returned subgraph failed validation: %v", verr)
	}
}

// TestFindMaxCommunity_TwoTriangles tests that with a spare vertex
// around, both triangles together form the largest community
func TestFindMaxCommunity_TwoTriangles(t *testing.T) {
	// Two triangles plus an isolated vertex 6, so {0..5} is proper
	g, err := graph.FromEdges(7, [][2]int{
		{0, 1}, {0, 2}, {1, 2},
		{3, 4}, {3, 5}, {4, 5},
	})
	if err != nil {
		t.Fatalf("FromEdges failed: %v", err)
	}

	sub, err := FindMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("FindMaxCommunity failed: %v", err)
	}

	if !reflect.DeepEqual(sub.Vertices, []int{0, 1, 2, 3, 4, 5}) {
		t.Errorf("Expected both triangles, got %v", sub.Vertices)
	}

	if verr := ValidateSubgraph(g, sub, false); verr != nil {
		t.Errorf("Returned subgraph failed validation: %v", verr)
	}
}

// TestFindMaxCommunity_IsolatedEdge tests the smallest possible
// community: an edge whose endpoints have no other neighbors
func TestFindMaxCommunity_IsolatedEdge(t *testing.T) {
	g, err := graph.FromEdges(3, [][2]int{{0, 1}})
	if err != nil {
		t.Fatalf("FromEdges failed: %v", err)
	}

	sub, err := FindMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("FindMaxCommunity failed: %v", err)
	}

	if !reflect.DeepEqual(sub.Vertices, []int{0, 1}) {
		t.Errorf("Expected the isolated edge [0 1], got %v", sub.Vertices)
	}
}

// TestFindMaxCommunity_Infeasible tests graphs with no proper dominant
// subset at all
func TestFindMaxCommunity_Infeasible(t *testing.T) {
	tests := []struct {
		name string
		g    *graph.Graph
	}{
		// A single vertex cannot meet the two-member floor
		{"SingleVertex", mustGraph(t, 1, nil)},
		// Two vertices leave no room for a proper subset
		{"SingleEdge", graph.Complete(2)},
		// In a triangle any pair ties 1-1 against the outside
		{"Triangle", graph.Complete(3)},
		// Path interior vertices tie 1-1
		{"PathOfThree", graph.Path(3)},
		// Cycles tie 1-1 on every arc boundary
		{"CycleOfFive", graph.Cycle(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := FindMaxCommunity(context.Background(), tt.g, testOptions())
			if sub != nil {
				t.Fatalf("Expected nil subgraph, got %v", sub.Vertices)
			}
			if !errors.Is(err, ErrInfeasible) {
				t.Fatalf("Expected ErrInfeasible, got %v", err)
			}
		})
	}
}

// TestFindMaxCommunity_InvalidInput tests graph rejection
func TestFindMaxCommunity_InvalidInput(t *testing.T) {
	_, err := FindMaxCommunity(context.Background(), nil, testOptions())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
}

// TestFindConnectedMaxCommunity_AlreadyConnected tests that connectivity
// costs nothing when the unconstrained optimum holds together
func TestFindConnectedMaxCommunity_AlreadyConnected(t *testing.T) {
	g := graph.Complete(4)

	sub, err := FindConnectedMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("FindConnectedMaxCommunity failed: %v", err)
	}

	if sub.Size() != 3 {
		t.Errorf("Expected size 3, got %d", sub.Size())
	}
	if sub.Rounds != 1 {
		t.Errorf("Expected 1 round, got %d", sub.Rounds)
	}
	if sub.Cuts != 0 {
		t.Errorf("Expected 0 cuts, got %d", sub.Cuts)
	}
}

// TestFindConnectedMaxCommunity_CutsDisconnectedOptimum tests the cut
// loop on its showpiece: the unconstrained optimum is both triangles,
// which is disconnected, so one cut later the answer is a single triangle
func TestFindConnectedMaxCommunity_CutsDisconnectedOptimum(t *testing.T) {
	g, err := graph.FromEdges(7, [][2]int{
		{0, 1}, {0, 2}, {1, 2},
		{3, 4}, {3, 5}, {4, 5},
	})
	if err != nil {
		t.Fatalf("FromEdges failed: %v", err)
	}

	sub, err := FindConnectedMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("FindConnectedMaxCommunity failed: %v", err)
	}

	if sub.Size() != 3 {
		t.Errorf("Expected a single triangle of size 3, got %d (%v)", sub.Size(), sub.Vertices)
	}

	first := reflect.DeepEqual(sub.Vertices, []int{0, 1, 2})
	second := reflect.DeepEqual(sub.Vertices, []int{3, 4, 5})
	if !first && !second {
		t.Errorf("Expected one of the triangles, got %v", sub.Vertices)
	}

	if sub.Rounds != 2 {
		t.Errorf("Expected 2 rounds (one cut re-solve), got %d", sub.Rounds)
	}
	if sub.Cuts != 1 {
		t.Errorf("Expected 1 connectivity cut, got %d", sub.Cuts)
	}

	if verr := ValidateSubgraph(g, sub, true); verr != nil {
		t.Errorf("Returned subgraph failed validation: %v", verr)
	}
}

// TestFindConnectedMaxCommunity_Deterministic tests that repeated runs
// agree even when the cut loop is involved
func TestFindConnectedMaxCommunity_Deterministic(t *testing.T) {
	g, err := graph.FromEdges(7, [][2]int{
		{0, 1}, {0, 2}, {1, 2},
		{3, 4}, {3, 5}, {4, 5},
	})
	if err != nil {
		t.Fatalf("FromEdges failed: %v", err)
	}

	first, err := FindConnectedMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	second, err := FindConnectedMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !reflect.DeepEqual(first.Vertices, second.Vertices) {
		t.Errorf("Runs disagreed: %v vs %v", first.Vertices, second.Vertices)
	}
}

// mustGraph builds an edge-list graph or fails the test
func mustGraph(t *testing.T, n int, edges [][2]int) *graph.Graph {
	t.Helper()
	g, err := graph.FromEdges(n, edges)
	if err != nil {
		t.Fatalf("FromEdges failed: %v", err)
	}
	return g
}
