// Package community detects proportionally dominant communities in
// undirected graphs by solving 0-1 integer programs.
//
// A community is proportional in the sense that membership is justified
// neighbor-by-neighbor: each vertex must have strictly more neighbors
// inside its own community than inside any rival community (for
// partitions), or strictly more inside than outside (for single
// communities). Four operations are provided: partitioning into exactly
// k communities (FindKCommunities), the same with every community
// required to induce a connected subgraph (FindConnectedKCommunities),
// finding a largest single community (FindMaxCommunity), and its
// connected variant (FindConnectedMaxCommunity). Every structure is
// re-validated against the defining inequalities before it reaches the
// caller.
package community

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/ilp"
	"github.com/dd0wney/cluso-communities/pkg/logging"
)

// FindKCommunities partitions g into exactly k communities such that
// every vertex has strictly more neighbors inside its own community than
// inside any other. Unless opts.Generalized is set, each community must
// have at least MinCommunitySize members.
//
// A proof that no such partition exists surfaces as ErrInfeasible; an
// exhausted time budget surfaces as *TimeoutError.
func FindKCommunities(ctx context.Context, g *graph.Graph, k int, opts Options) (*Partition, error) {
	return solvePartition(ctx, g, k, false, opts)
}

// FindConnectedKCommunities behaves like FindKCommunities but requires
// every community to induce a connected subgraph. Connectivity is
// enforced lazily: assignments with split communities are cut off and
// the model re-solved until every community holds together.
func FindConnectedKCommunities(ctx context.Context, g *graph.Graph, k int, opts Options) (*Partition, error) {
	return solvePartition(ctx, g, k, true, opts)
}

// FindMaxCommunity finds a largest proper subset of vertices in which
// every member has strictly more neighbors inside the subset than
// outside it. Graphs with fewer than three vertices admit no such
// subset and surface ErrInfeasible.
//
// When the time budget runs out after the solver already found a
// feasible subset, the returned *TimeoutError carries it with its
// Optimal flag cleared.
func FindMaxCommunity(ctx context.Context, g *graph.Graph, opts Options) (*Subgraph, error) {
	return solveSubgraph(ctx, g, false, opts)
}

// FindConnectedMaxCommunity behaves like FindMaxCommunity but requires
// the subset to induce a connected subgraph, enforced with the same
// lazy cuts as FindConnectedKCommunities.
func FindConnectedMaxCommunity(ctx context.Context, g *graph.Graph, opts Options) (*Subgraph, error) {
	return solveSubgraph(ctx, g, true, opts)
}

func solvePartition(ctx context.Context, g *graph.Graph, k int, connected bool, opts Options) (*Partition, error) {
	variant := VariantKCommunity
	if connected {
		variant = VariantConnectedKCommunity
	}

	if g == nil || g.N() == 0 {
		return nil, fmt.Errorf("%w: graph has no vertices", ErrInvalidInput)
	}
	if k < 1 || k > g.N() {
		return nil, fmt.Errorf("%w: k=%d must be between 1 and %d", ErrInvalidInput, k, g.N())
	}

	opts = opts.withDefaults(g.N())
	log := opts.Logger.With(
		logging.Variant(string(variant)),
		logging.RunID(uuid.NewString()),
		logging.Vertices(g.N()),
		logging.Edges(g.EdgeCount()),
		logging.Communities(k),
	)

	start := time.Now()
	opts.Metrics.SolvesInFlight.Inc()
	defer opts.Metrics.SolvesInFlight.Dec()

	var cuts []cut
	for round := 1; ; round++ {
		budget, expired := remaining(opts.TimeLimit, start)
		if expired {
			opts.Metrics.RecordSolve(string(variant), "timeout", time.Since(start))
			log.Warn("time limit reached between rounds", logging.Round(round), logging.Cuts(len(cuts)))
			return nil, &TimeoutError{Limit: opts.TimeLimit}
		}

		model, x := buildPartitionModel(g, k, opts.Generalized, cuts)
		if round == 1 {
			opts.Metrics.RecordModelSize(string(variant), model.NumVars(), model.NumConstraints())
			log.Debug("model built",
				logging.Int("variables", model.NumVars()),
				logging.Int("constraints", model.NumConstraints()),
			)
		}

		sol, err := opts.Solver.Solve(ctx, model, budget)
		if err != nil {
			opts.Metrics.RecordSolve(string(variant), "error", time.Since(start))
			log.Error("solver failed", logging.Error(err), logging.Round(round))
			return nil, fmt.Errorf("solving %s model: %w", variant, err)
		}

		switch sol.Status {
		case ilp.StatusInfeasible:
			opts.Metrics.RecordSolve(string(variant), "infeasible", time.Since(start))
			log.Info("proved infeasible", logging.Round(round), logging.Latency(time.Since(start)))
			kind := "partition"
			if connected {
				kind = "connected partition"
			}
			return nil, fmt.Errorf("%w: no %s of %d vertices into %d communities", ErrInfeasible, kind, g.N(), k)

		case ilp.StatusTimeout:
			opts.Metrics.RecordSolve(string(variant), "timeout", time.Since(start))
			log.Warn("time limit reached", logging.Round(round), logging.Cuts(len(cuts)))
			te := &TimeoutError{Limit: opts.TimeLimit}
			if sol.HasAssignment() {
				if p, derr := decodePartition(g, sol, x, k); derr == nil &&
					ValidatePartition(g, p, opts.Generalized, connected) == nil {
					p.Rounds = round
					p.Cuts = len(cuts)
					p.Duration = time.Since(start)
					te.Partition = p
				}
			}
			return nil, te
		}

		p, derr := decodePartition(g, sol, x, k)
		if derr != nil {
			opts.Metrics.RecordSolve(string(variant), "error", time.Since(start))
			return nil, &InconsistencyError{Variant: variant, Reason: derr.Error()}
		}

		if connected {
			fresh := partitionSplitCuts(g, p)
			if len(fresh) > 0 {
				if round >= opts.MaxCutRounds {
					opts.Metrics.RecordSolve(string(variant), "error", time.Since(start))
					log.Error("connectivity cuts exhausted", logging.Rounds(round), logging.Cuts(len(cuts)))
					return nil, &CutLimitError{Variant: variant, Rounds: round}
				}
				cuts = append(cuts, fresh...)
				log.Debug("communities split into components, cutting",
					logging.Round(round),
					logging.Int("new_cuts", len(fresh)),
				)
				continue
			}
		}

		if verr := ValidatePartition(g, p, opts.Generalized, connected); verr != nil {
			opts.Metrics.RecordSolve(string(variant), "error", time.Since(start))
			return nil, &InconsistencyError{Variant: variant, Reason: verr.Error()}
		}

		p.Optimal = true
		p.Rounds = round
		p.Cuts = len(cuts)
		p.Duration = time.Since(start)

		opts.Metrics.RecordSolve(string(variant), "optimal", p.Duration)
		opts.Metrics.RecordCutRounds(string(variant), round, len(cuts))
		for _, members := range p.Members {
			if len(members) > 0 {
				opts.Metrics.RecordCommunitySize(string(variant), len(members))
			}
		}
		log.Info("detection finished",
			logging.Status("optimal"),
			logging.Rounds(round),
			logging.Cuts(len(cuts)),
			logging.Latency(p.Duration),
		)
		return p, nil
	}
}

func solveSubgraph(ctx context.Context, g *graph.Graph, connected bool, opts Options) (*Subgraph, error) {
	variant := VariantMaxCommunity
	if connected {
		variant = VariantConnectedMaxCommunity
	}

	if g == nil || g.N() == 0 {
		return nil, fmt.Errorf("%w: graph has no vertices", ErrInvalidInput)
	}

	opts = opts.withDefaults(g.N())
	log := opts.Logger.With(
		logging.Variant(string(variant)),
		logging.RunID(uuid.NewString()),
		logging.Vertices(g.N()),
		logging.Edges(g.EdgeCount()),
	)

	start := time.Now()
	opts.Metrics.SolvesInFlight.Inc()
	defer opts.Metrics.SolvesInFlight.Dec()

	var cuts []cut
	for round := 1; ; round++ {
		budget, expired := remaining(opts.TimeLimit, start)
		if expired {
			opts.Metrics.RecordSolve(string(variant), "timeout", time.Since(start))
			log.Warn("time limit reached between rounds", logging.Round(round), logging.Cuts(len(cuts)))
			return nil, &TimeoutError{Limit: opts.TimeLimit}
		}

		model, s := buildSubgraphModel(g, cuts)
		if round == 1 {
			opts.Metrics.RecordModelSize(string(variant), model.NumVars(), model.NumConstraints())
			log.Debug("model built",
				logging.Int("variables", model.NumVars()),
				logging.Int("constraints", model.NumConstraints()),
			)
		}

		sol, err := opts.Solver.Solve(ctx, model, budget)
		if err != nil {
			opts.Metrics.RecordSolve(string(variant), "error", time.Since(start))
			log.Error("solver failed", logging.Error(err), logging.Round(round))
			return nil, fmt.Errorf("solving %s model: %w", variant, err)
		}

		switch sol.Status {
		case ilp.StatusInfeasible:
			opts.Metrics.RecordSolve(string(variant), "infeasible", time.Since(start))
			log.Info("proved infeasible", logging.Round(round), logging.Latency(time.Since(start)))
			kind := "community subgraph"
			if connected {
				kind = "connected community subgraph"
			}
			return nil, fmt.Errorf("%w: no proper %s in %d vertices", ErrInfeasible, kind, g.N())

		case ilp.StatusTimeout:
			opts.Metrics.RecordSolve(string(variant), "timeout", time.Since(start))
			log.Warn("time limit reached", logging.Round(round), logging.Cuts(len(cuts)))
			te := &TimeoutError{Limit: opts.TimeLimit}
			if sol.HasAssignment() {
				sub := &Subgraph{
					Vertices: decodeSubgraph(g, sol, s),
					Rounds:   round,
					Cuts:     len(cuts),
					Duration: time.Since(start),
				}
				if ValidateSubgraph(g, sub, connected) == nil {
					te.Subgraph = sub
				}
			}
			return nil, te
		}

		sub := &Subgraph{Vertices: decodeSubgraph(g, sol, s)}

		if connected {
			fresh := subgraphSplitCuts(g, sub.Vertices)
			if len(fresh) > 0 {
				if round >= opts.MaxCutRounds {
					opts.Metrics.RecordSolve(string(variant), "error", time.Since(start))
					log.Error("connectivity cuts exhausted", logging.Rounds(round), logging.Cuts(len(cuts)))
					return nil, &CutLimitError{Variant: variant, Rounds: round}
				}
				cuts = append(cuts, fresh...)
				log.Debug("community split into components, cutting",
					logging.Round(round),
					logging.Int("new_cuts", len(fresh)),
				)
				continue
			}
		}

		if verr := ValidateSubgraph(g, sub, connected); verr != nil {
			opts.Metrics.RecordSolve(string(variant), "error", time.Since(start))
			return nil, &InconsistencyError{Variant: variant, Reason: verr.Error()}
		}

		sub.Optimal = true
		sub.Rounds = round
		sub.Cuts = len(cuts)
		sub.Duration = time.Since(start)

		opts.Metrics.RecordSolve(string(variant), "optimal", sub.Duration)
		opts.Metrics.RecordCutRounds(string(variant), round, len(cuts))
		opts.Metrics.RecordCommunitySize(string(variant), sub.Size())
		log.Info("detection finished",
			logging.Status("optimal"),
			logging.Int("size", sub.Size()),
			logging.Rounds(round),
			logging.Cuts(len(cuts)),
			logging.Latency(sub.Duration),
		)
		return sub, nil
	}
}

// partitionSplitCuts returns one cut per pair of components in every
// community that fell apart, or nil if all communities hold together.
func partitionSplitCuts(g *graph.Graph, p *Partition) []cut {
	var fresh []cut
	for c, members := range p.Members {
		if len(members) < 2 {
			continue
		}
		comps := g.InducedComponents(members)
		if len(comps) < 2 {
			continue
		}
		for i := 0; i < len(comps); i++ {
			for j := i + 1; j < len(comps); j++ {
				fresh = append(fresh, cut{
					community: c,
					boundary:  g.Boundary(comps[i]),
					a:         comps[i][0],
					b:         comps[j][0],
				})
			}
		}
	}
	return fresh
}

// subgraphSplitCuts is partitionSplitCuts for a single vertex set.
func subgraphSplitCuts(g *graph.Graph, vertices []int) []cut {
	comps := g.InducedComponents(vertices)
	if len(comps) < 2 {
		return nil
	}
	var fresh []cut
	for i := 0; i < len(comps); i++ {
		for j := i + 1; j < len(comps); j++ {
			fresh = append(fresh, cut{
				boundary: g.Boundary(comps[i]),
				a:        comps[i][0],
				b:        comps[j][0],
			})
		}
	}
	return fresh
}

// remaining computes the budget left for the next solver round. A zero
// or negative limit enforces no budget.
func remaining(limit time.Duration, start time.Time) (left time.Duration, expired bool) {
	if limit <= 0 {
		return 0, false
	}
	left = limit - time.Since(start)
	if left <= 0 {
		return 0, true
	}
	return left, false
}
