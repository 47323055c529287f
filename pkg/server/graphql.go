package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// GraphQLRequest is a GraphQL HTTP request envelope.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse is a GraphQL HTTP response envelope.
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError is a single GraphQL error.
type GraphQLError struct {
	Message string `json:"message"`
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).Post(func() { s.serveGraphQL(w, r) }).NotAllowed()
}

func (s *Server) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	if s.decode(w, r).JSON(&req).RespondError() {
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	response := GraphQLResponse{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]GraphQLError, len(result.Errors))
		for i, gqlErr := range result.Errors {
			response.Errors[i] = GraphQLError{Message: gqlErr.Message}
		}
	}

	// GraphQL always answers 200; failures travel in the errors list
	s.respondJSON(w, http.StatusOK, response)
}

// buildSchema constructs the GraphQL mirror of the JSON API: the same
// two detection operations plus a health probe.
func (s *Server) buildSchema() (graphql.Schema, error) {
	matrixArg := graphql.NewNonNull(graphql.NewList(graphql.NewList(graphql.Int)))

	communitiesType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Communities",
		Fields: graphql.Fields{
			"status":      &graphql.Field{Type: graphql.String},
			"variant":     &graphql.Field{Type: graphql.String},
			"members":     &graphql.Field{Type: graphql.NewList(graphql.NewList(graphql.Int))},
			"labels":      &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"communities": &graphql.Field{Type: graphql.Int},
			"optimal":     &graphql.Field{Type: graphql.Boolean},
			"rounds":      &graphql.Field{Type: graphql.Int},
			"cuts":        &graphql.Field{Type: graphql.Int},
			"durationMs":  &graphql.Field{Type: graphql.Int},
		},
	})

	subgraphType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subgraph",
		Fields: graphql.Fields{
			"status":     &graphql.Field{Type: graphql.String},
			"variant":    &graphql.Field{Type: graphql.String},
			"vertices":   &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"size":       &graphql.Field{Type: graphql.Int},
			"optimal":    &graphql.Field{Type: graphql.Boolean},
			"rounds":     &graphql.Field{Type: graphql.Int},
			"cuts":       &graphql.Field{Type: graphql.Int},
			"durationMs": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"communities": &graphql.Field{
				Type: communitiesType,
				Args: graphql.FieldConfigArgument{
					"matrix":      &graphql.ArgumentConfig{Type: matrixArg},
					"k":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"connected":   &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"generalized": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"timeLimitMs": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: s.resolveCommunities,
			},
			"subgraph": &graphql.Field{
				Type: subgraphType,
				Args: graphql.FieldConfigArgument{
					"matrix":      &graphql.ArgumentConfig{Type: matrixArg},
					"connected":   &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"timeLimitMs": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: s.resolveSubgraph,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func (s *Server) resolveCommunities(p graphql.ResolveParams) (any, error) {
	matrix, err := matrixFromArg(p.Args["matrix"])
	if err != nil {
		return nil, err
	}
	k, _ := p.Args["k"].(int)
	connected, _ := p.Args["connected"].(bool)
	generalized, _ := p.Args["generalized"].(bool)
	timeLimitMs, _ := p.Args["timeLimitMs"].(int)

	g, err := s.graphForSolve(matrix)
	if err != nil {
		return nil, err
	}

	if err := s.acquireSlot(p.Context); err != nil {
		return nil, err
	}
	defer s.release()

	variant := community.VariantKCommunity
	run := s.runner.KCommunities
	if connected {
		variant = community.VariantConnectedKCommunity
		run = s.runner.ConnectedKCommunities
	}

	opts := s.solveOptions(int64(timeLimitMs))
	opts.Generalized = generalized

	part, err := run(p.Context, g, k, opts)
	if err != nil {
		var te *community.TimeoutError
		if !errors.As(err, &te) || te.Partition == nil {
			return nil, err
		}
		part = te.Partition
	}

	resp := partitionResponse(variant, part)
	return map[string]any{
		"status":      resp.Status,
		"variant":     resp.Variant,
		"members":     resp.Members,
		"labels":      resp.Labels,
		"communities": resp.Communities,
		"optimal":     resp.Optimal,
		"rounds":      resp.Rounds,
		"cuts":        resp.Cuts,
		"durationMs":  resp.DurationMs,
	}, nil
}

func (s *Server) resolveSubgraph(p graphql.ResolveParams) (any, error) {
	matrix, err := matrixFromArg(p.Args["matrix"])
	if err != nil {
		return nil, err
	}
	connected, _ := p.Args["connected"].(bool)
	timeLimitMs, _ := p.Args["timeLimitMs"].(int)

	g, err := s.graphForSolve(matrix)
	if err != nil {
		return nil, err
	}

	if err := s.acquireSlot(p.Context); err != nil {
		return nil, err
	}
	defer s.release()

	variant := community.VariantMaxCommunity
	run := s.runner.MaxCommunity
	if connected {
		variant = community.VariantConnectedMaxCommunity
		run = s.runner.ConnectedMaxCommunity
	}

	sg, err := run(p.Context, g, s.solveOptions(int64(timeLimitMs)))
	if err != nil {
		var te *community.TimeoutError
		if !errors.As(err, &te) || te.Subgraph == nil {
			return nil, err
		}
		sg = te.Subgraph
	}

	resp := subgraphResponse(variant, sg)
	return map[string]any{
		"status":     resp.Status,
		"variant":    resp.Variant,
		"vertices":   resp.Vertices,
		"size":       resp.Size,
		"optimal":    resp.Optimal,
		"rounds":     resp.Rounds,
		"cuts":       resp.Cuts,
		"durationMs": resp.DurationMs,
	}, nil
}

// graphForSolve builds a graph from matrix rows and applies the
// configured vertex cap.
func (s *Server) graphForSolve(matrix [][]int) (*graph.Graph, error) {
	g, err := graph.FromRows(matrix)
	if err != nil {
		return nil, err
	}
	if max := s.cfg.MaxVertices; max > 0 && g.N() > max {
		return nil, fmt.Errorf("graph has %d vertices, server accepts at most %d", g.N(), max)
	}
	return g, nil
}

// matrixFromArg converts a GraphQL list-of-lists argument into matrix
// rows.
func matrixFromArg(arg any) ([][]int, error) {
	rowsArg, ok := arg.([]any)
	if !ok {
		return nil, fmt.Errorf("matrix must be a list of rows")
	}
	matrix := make([][]int, len(rowsArg))
	for i, rowArg := range rowsArg {
		cells, ok := rowArg.([]any)
		if !ok {
			return nil, fmt.Errorf("matrix row %d must be a list", i)
		}
		row := make([]int, len(cells))
		for j, cell := range cells {
			n, ok := cell.(int)
			if !ok {
				return nil, fmt.Errorf("matrix entry (%d,%d) must be an integer", i, j)
			}
			row[j] = n
		}
		matrix[i] = row
	}
	return matrix, nil
}
