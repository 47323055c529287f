package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/logging"
)

var errSaturated = errors.New("server is saturated, retry later")

func (s *Server) handleCommunities(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).Post(func() { s.detectCommunities(w, r) }).NotAllowed()
}

func (s *Server) handleSubgraph(w http.ResponseWriter, r *http.Request) {
	s.route(w, r).Post(func() { s.detectSubgraph(w, r) }).NotAllowed()
}

func (s *Server) detectCommunities(w http.ResponseWriter, r *http.Request) {
	var req CommunitiesRequest
	if s.decode(w, r).JSON(&req).RespondError() {
		return
	}

	g, err := s.graphForSolve(req.Matrix)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.acquire(w, r.Context()) {
		return
	}
	defer s.release()

	variant := community.VariantKCommunity
	run := s.runner.KCommunities
	if req.Connected {
		variant = community.VariantConnectedKCommunity
		run = s.runner.ConnectedKCommunities
	}

	opts := s.solveOptions(req.TimeLimitMs)
	opts.Generalized = req.Generalized

	p, err := run(r.Context(), g, req.K, opts)
	if err != nil {
		var te *community.TimeoutError
		switch {
		case community.IsInvalidInput(err):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case community.IsInfeasible(err):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &te) && te.Partition != nil:
			// Inconclusive search with a usable incumbent
			s.archivePartition(r.Context(), variant, g, &req, te.Partition)
			s.respondJSON(w, http.StatusOK, partitionResponse(variant, te.Partition))
		case errors.As(err, &te):
			s.respondError(w, http.StatusGatewayTimeout, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "community detection"))
		}
		return
	}

	s.archivePartition(r.Context(), variant, g, &req, p)
	s.respondJSON(w, http.StatusOK, partitionResponse(variant, p))
}

func (s *Server) detectSubgraph(w http.ResponseWriter, r *http.Request) {
	var req SubgraphRequest
	if s.decode(w, r).JSON(&req).RespondError() {
		return
	}

	g, err := s.graphForSolve(req.Matrix)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.acquire(w, r.Context()) {
		return
	}
	defer s.release()

	variant := community.VariantMaxCommunity
	run := s.runner.MaxCommunity
	if req.Connected {
		variant = community.VariantConnectedMaxCommunity
		run = s.runner.ConnectedMaxCommunity
	}

	sg, err := run(r.Context(), g, s.solveOptions(req.TimeLimitMs))
	if err != nil {
		var te *community.TimeoutError
		switch {
		case community.IsInvalidInput(err):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case community.IsInfeasible(err):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &te) && te.Subgraph != nil:
			// Inconclusive search with a usable incumbent
			s.archiveSubgraph(r.Context(), variant, g, te.Subgraph)
			s.respondJSON(w, http.StatusOK, subgraphResponse(variant, te.Subgraph))
		case errors.As(err, &te):
			s.respondError(w, http.StatusGatewayTimeout, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, "subgraph detection"))
		}
		return
	}

	s.archiveSubgraph(r.Context(), variant, g, sg)
	s.respondJSON(w, http.StatusOK, subgraphResponse(variant, sg))
}

// acquireSlot blocks until a solve slot frees up or the caller's
// context ends.
func (s *Server) acquireSlot(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errSaturated
	}
}

func (s *Server) acquire(w http.ResponseWriter, ctx context.Context) bool {
	if err := s.acquireSlot(ctx); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return false
	}
	return true
}

func (s *Server) release() {
	<-s.sem
}

// solveOptions builds per-request solve options. Clients may shorten
// the configured time budget, never extend it.
func (s *Server) solveOptions(timeLimitMs int64) community.Options {
	limit := s.solver.TimeLimit.Std()
	if timeLimitMs > 0 {
		asked := time.Duration(timeLimitMs) * time.Millisecond
		if limit <= 0 || asked < limit {
			limit = asked
		}
	}
	return community.Options{
		TimeLimit:    limit,
		MaxCutRounds: s.solver.MaxCutRounds,
		Logger:       s.logger,
		Metrics:      s.registry,
	}
}

func (s *Server) archivePartition(ctx context.Context, variant community.Variant, g *graph.Graph, req *CommunitiesRequest, p *community.Partition) {
	if s.archiver == nil {
		return
	}
	rec := archive.NewPartitionRecord(variant, g, req.K, req.Generalized, p)
	if err := s.archiver.Save(ctx, rec); err != nil {
		s.logger.Warn("archiving run failed",
			logging.Variant(string(variant)), logging.Error(err))
	}
}

func (s *Server) archiveSubgraph(ctx context.Context, variant community.Variant, g *graph.Graph, sg *community.Subgraph) {
	if s.archiver == nil {
		return
	}
	rec := archive.NewSubgraphRecord(variant, g, sg)
	if err := s.archiver.Save(ctx, rec); err != nil {
		s.logger.Warn("archiving run failed",
			logging.Variant(string(variant)), logging.Error(err))
	}
}

func partitionResponse(variant community.Variant, p *community.Partition) CommunitiesResponse {
	status := "optimal"
	if !p.Optimal {
		status = "timeout"
	}
	return CommunitiesResponse{
		Status:      status,
		Variant:     string(variant),
		Members:     p.Members,
		Labels:      p.Labels,
		Communities: p.CommunityCount(),
		Optimal:     p.Optimal,
		Rounds:      p.Rounds,
		Cuts:        p.Cuts,
		DurationMs:  p.Duration.Milliseconds(),
	}
}

func subgraphResponse(variant community.Variant, sg *community.Subgraph) SubgraphResponse {
	status := "optimal"
	if !sg.Optimal {
		status = "timeout"
	}
	return SubgraphResponse{
		Status:     status,
		Variant:    string(variant),
		Vertices:   sg.Vertices,
		Size:       sg.Size(),
		Optimal:    sg.Optimal,
		Rounds:     sg.Rounds,
		Cuts:       sg.Cuts,
		DurationMs: sg.Duration.Milliseconds(),
	}
}
