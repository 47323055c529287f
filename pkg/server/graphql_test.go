package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// matrixLiteral renders an adjacency matrix as a GraphQL list literal.
// JSON array syntax doubles as GraphQL list syntax for integers.
func matrixLiteral(t *testing.T, matrix [][]int) string {
	t.Helper()
	data, err := json.Marshal(matrix)
	if err != nil {
		t.Fatalf("Failed to marshal matrix: %v", err)
	}
	return string(data)
}

// queryGraphQL posts a query and decodes the response envelope.
func queryGraphQL(t *testing.T, h http.Handler, req GraphQLRequest) (int, GraphQLResponse) {
	t.Helper()

	rr := postJSON(t, h, "/api/v1/graphql", req)

	var resp GraphQLResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return rr.Code, resp
}

// field digs a named object out of the decoded data payload.
func field(t *testing.T, resp GraphQLResponse, name string) map[string]any {
	t.Helper()

	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected an object payload, got %T", resp.Data)
	}
	obj, ok := data[name].(map[string]any)
	if !ok {
		t.Fatalf("Expected %q in payload, got %v", name, data)
	}
	return obj
}

// TestGraphQL_Health tests the health field
func TestGraphQL_Health(t *testing.T) {
	s := newTestServer(t, testConfig())

	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{Query: "{ health }"})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("Expected no errors, got %v", resp.Errors)
	}

	data, ok := resp.Data.(map[string]any)
	if !ok || data["health"] != "ok" {
		t.Errorf("Expected health ok, got %v", resp.Data)
	}
}

// TestGraphQL_Communities tests the communities field on two disjoint
// triangles
func TestGraphQL_Communities(t *testing.T) {
	s := newTestServer(t, testConfig())

	query := fmt.Sprintf(
		"{ communities(matrix: %s, k: 2) { status variant communities optimal members } }",
		matrixLiteral(t, twoTrianglesMatrix()))

	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{Query: query})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("Expected no errors, got %v", resp.Errors)
	}

	communities := field(t, resp, "communities")
	if communities["status"] != "optimal" {
		t.Errorf("Expected status optimal, got %v", communities["status"])
	}
	if communities["variant"] != "k_community" {
		t.Errorf("Expected variant k_community, got %v", communities["variant"])
	}
	if count, _ := communities["communities"].(float64); count != 2 {
		t.Errorf("Expected 2 communities, got %v", communities["communities"])
	}
	if optimal, _ := communities["optimal"].(bool); !optimal {
		t.Error("Expected an optimal result")
	}
	if members, _ := communities["members"].([]any); len(members) != 2 {
		t.Errorf("Expected 2 member lists, got %v", communities["members"])
	}
}

// TestGraphQL_Subgraph tests the subgraph field on a 4-clique
func TestGraphQL_Subgraph(t *testing.T) {
	s := newTestServer(t, testConfig())

	query := fmt.Sprintf(
		"{ subgraph(matrix: %s) { status variant size vertices } }",
		matrixLiteral(t, graph.Complete(4).Rows()))

	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{Query: query})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("Expected no errors, got %v", resp.Errors)
	}

	subgraph := field(t, resp, "subgraph")
	if size, _ := subgraph["size"].(float64); size != 3 {
		t.Errorf("Expected size 3, got %v", subgraph["size"])
	}
	if subgraph["variant"] != "max_community" {
		t.Errorf("Expected variant max_community, got %v", subgraph["variant"])
	}
}

// TestGraphQL_SubgraphConnected tests the connected argument
func TestGraphQL_SubgraphConnected(t *testing.T) {
	s := newTestServer(t, testConfig())

	query := fmt.Sprintf(
		"{ subgraph(matrix: %s, connected: true) { variant size } }",
		matrixLiteral(t, twoTrianglesMatrix()))

	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{Query: query})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("Expected no errors, got %v", resp.Errors)
	}

	subgraph := field(t, resp, "subgraph")
	if subgraph["variant"] != "connected_max_community" {
		t.Errorf("Expected the connected variant, got %v", subgraph["variant"])
	}
	if size, _ := subgraph["size"].(float64); size != 3 {
		t.Errorf("Expected size 3, got %v", subgraph["size"])
	}
}

// TestGraphQL_Variables tests argument passing through the variables map
func TestGraphQL_Variables(t *testing.T) {
	s := newTestServer(t, testConfig())

	query := fmt.Sprintf(
		"query Detect($k: Int!) { communities(matrix: %s, k: $k) { communities } }",
		matrixLiteral(t, twoTrianglesMatrix()))

	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{
		Query:     query,
		Variables: map[string]any{"k": 2},
	})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("Expected no errors, got %v", resp.Errors)
	}

	communities := field(t, resp, "communities")
	if count, _ := communities["communities"].(float64); count != 2 {
		t.Errorf("Expected 2 communities, got %v", communities["communities"])
	}
}

// TestGraphQL_MalformedQuery tests that query errors travel in the errors
// list with a 200 status
func TestGraphQL_MalformedQuery(t *testing.T) {
	s := newTestServer(t, testConfig())

	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{Query: "{ nonexistent }"})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) == 0 {
		t.Fatal("Expected errors for an unknown field")
	}
}

// TestGraphQL_InvalidMatrix tests that input rejection surfaces as a
// GraphQL error
func TestGraphQL_InvalidMatrix(t *testing.T) {
	s := newTestServer(t, testConfig())

	query := "{ communities(matrix: [[0, 1], [0, 0]], k: 1) { status } }"
	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{Query: query})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) == 0 {
		t.Fatal("Expected errors for an asymmetric matrix")
	}
}

// TestGraphQL_InfeasibleSurfacesError tests that a proven infeasibility
// becomes a GraphQL error rather than an empty result
func TestGraphQL_InfeasibleSurfacesError(t *testing.T) {
	s := newTestServer(t, testConfig())

	query := fmt.Sprintf(
		"{ communities(matrix: %s, k: 2) { status } }",
		matrixLiteral(t, graph.Path(4).Rows()))

	code, resp := queryGraphQL(t, s.Handler(), GraphQLRequest{Query: query})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", code)
	}
	if len(resp.Errors) == 0 {
		t.Fatal("Expected errors for an infeasible instance")
	}
}

// TestGraphQL_MethodNotAllowed tests GET rejection on the GraphQL route
func TestGraphQL_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/graphql", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %v", rr.Code)
	}
}
