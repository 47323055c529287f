package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/metrics"
)

// Archiver records finished runs, matching the server's archive seam.
type Archiver interface {
	Save(ctx context.Context, rec *archive.Record) error
}

// Worker binds a rep socket and serves detection jobs one at a time.
// Heavy lifting happens in the solver; the loop itself only frames and
// classifies.
type Worker struct {
	cfg      config.RemoteConfig
	sock     mangos.Socket
	archiver Archiver
	logger   logging.Logger
	registry *metrics.Registry

	solveCtx context.Context
	cancel   context.CancelFunc

	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewWorker creates a worker for the configured listen address.
func NewWorker(cfg config.RemoteConfig) (*Worker, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("worker requires a listen address")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		cfg:      cfg,
		logger:   logging.DefaultLogger().With(logging.Component("worker")),
		registry: metrics.DefaultRegistry(),
		solveCtx: ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
	}, nil
}

// SetArchiver enables run recording on the worker side.
func (w *Worker) SetArchiver(a Archiver) {
	w.archiver = a
}

// Start binds the socket and begins serving.
func (w *Worker) Start() error {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()

	if w.running {
		return fmt.Errorf("worker already running")
	}

	sock, err := rep.NewSocket()
	if err != nil {
		return fmt.Errorf("creating rep socket: %w", err)
	}

	// Short recv deadline so the loop notices stop requests.
	if err := sock.SetOption(mangos.OptionRecvDeadline, time.Second); err != nil {
		sock.Close()
		return fmt.Errorf("setting recv deadline: %w", err)
	}
	sendTimeout := w.cfg.SendTimeout.Std()
	if sendTimeout <= 0 {
		sendTimeout = config.DefaultSendTimeout
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, sendTimeout); err != nil {
		sock.Close()
		return fmt.Errorf("setting send deadline: %w", err)
	}

	if err := sock.Listen(w.cfg.ListenAddr); err != nil {
		sock.Close()
		return fmt.Errorf("listening on %s: %w", w.cfg.ListenAddr, err)
	}
	w.sock = sock

	w.running = true
	w.wg.Add(1)
	go w.serve()

	w.logger.Info("worker listening", logging.String("addr", w.cfg.ListenAddr))
	return nil
}

// Stop cancels any in-flight solve and shuts the socket down.
func (w *Worker) Stop() error {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()

	if !w.running {
		return nil
	}

	close(w.stopCh)
	w.cancel()
	w.running = false

	if w.sock != nil {
		if err := w.sock.Close(); err != nil {
			w.logger.Warn("closing worker socket failed", logging.Error(err))
		}
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
	return nil
}

func (w *Worker) serve() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		raw, err := w.sock.Recv()
		if err != nil {
			continue // Timeout or closing
		}

		resp := w.dispatch(raw)
		data, err := json.Marshal(resp)
		if err != nil {
			w.logger.Error("encoding reply failed", logging.Error(err))
			continue
		}
		if err := w.sock.Send(data); err != nil {
			w.logger.Error("sending reply failed", logging.Error(err))
		}
	}
}

// dispatch decodes one request and solves it.
func (w *Worker) dispatch(raw []byte) *SolveResponse {
	var req SolveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return &SolveResponse{
			Status: StatusInvalidInput,
			Error:  fmt.Sprintf("malformed solve request: %v", err),
		}
	}
	return w.handle(w.solveCtx, &req)
}

func (w *Worker) handle(ctx context.Context, req *SolveRequest) *SolveResponse {
	start := time.Now()

	g, err := graph.FromRows(req.Matrix)
	if err != nil {
		return w.finish(req, nil, nil, err, start)
	}

	opts := community.Options{
		TimeLimit:    time.Duration(req.TimeLimitMs) * time.Millisecond,
		Generalized:  req.Generalized,
		MaxCutRounds: req.MaxCutRounds,
		Logger:       w.logger,
		Metrics:      w.registry,
	}

	var p *community.Partition
	var sg *community.Subgraph
	switch community.Variant(req.Variant) {
	case community.VariantKCommunity:
		p, err = community.FindKCommunities(ctx, g, req.K, opts)
	case community.VariantConnectedKCommunity:
		p, err = community.FindConnectedKCommunities(ctx, g, req.K, opts)
	case community.VariantMaxCommunity:
		sg, err = community.FindMaxCommunity(ctx, g, opts)
	case community.VariantConnectedMaxCommunity:
		sg, err = community.FindConnectedMaxCommunity(ctx, g, opts)
	default:
		return &SolveResponse{
			ID:     req.ID,
			Status: StatusInvalidInput,
			Error:  fmt.Sprintf("unknown variant %q", req.Variant),
		}
	}

	if err == nil {
		w.archiveRun(req, g, p, sg)
	}
	return w.finish(req, p, sg, err, start)
}

// finish classifies the outcome, logs it and shapes the reply.
func (w *Worker) finish(req *SolveRequest, p *community.Partition, sg *community.Subgraph, err error, start time.Time) *SolveResponse {
	resp := &SolveResponse{
		ID:     req.ID,
		Status: classify(err),
	}

	switch resp.Status {
	case StatusOK:
		resp.Partition = partitionToWire(p)
		resp.Subgraph = subgraphToWire(sg)
	case StatusTimeout:
		var te *community.TimeoutError
		if errors.As(err, &te) {
			resp.LimitMs = te.Limit.Milliseconds()
			resp.Partition = partitionToWire(te.Partition)
			resp.Subgraph = subgraphToWire(te.Subgraph)
		}
		resp.Error = err.Error()
	default:
		resp.Error = err.Error()
	}

	w.logger.Info("solve handled",
		logging.RunID(req.ID),
		logging.Variant(req.Variant),
		logging.Status(resp.Status),
		logging.Latency(time.Since(start)))
	return resp
}

func (w *Worker) archiveRun(req *SolveRequest, g *graph.Graph, p *community.Partition, sg *community.Subgraph) {
	if w.archiver == nil {
		return
	}

	var rec *archive.Record
	switch {
	case p != nil:
		rec = archive.NewPartitionRecord(community.Variant(req.Variant), g, req.K, req.Generalized, p)
	case sg != nil:
		rec = archive.NewSubgraphRecord(community.Variant(req.Variant), g, sg)
	default:
		return
	}

	if err := w.archiver.Save(w.solveCtx, rec); err != nil {
		w.logger.Warn("archiving run failed",
			logging.Variant(req.Variant), logging.Error(err))
	}
}
