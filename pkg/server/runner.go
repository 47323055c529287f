package server

import (
	"context"

	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// Runner executes detection jobs on behalf of the HTTP layer. The
// default runner solves in-process; a remote runner forwards jobs to a
// worker over the wire.
type Runner interface {
	KCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error)
	ConnectedKCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error)
	MaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error)
	ConnectedMaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error)
}

// localRunner solves in the server process.
type localRunner struct{}

func (localRunner) KCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error) {
	return community.FindKCommunities(ctx, g, k, opts)
}

func (localRunner) ConnectedKCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error) {
	return community.FindConnectedKCommunities(ctx, g, k, opts)
}

func (localRunner) MaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error) {
	return community.FindMaxCommunity(ctx, g, opts)
}

func (localRunner) ConnectedMaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error) {
	return community.FindConnectedMaxCommunity(ctx, g, opts)
}
