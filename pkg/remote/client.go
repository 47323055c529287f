package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/metrics"
)

// Client forwards detection jobs to a worker. It has the same method
// set as the server's in-process runner, so it drops into the server
// with SetRunner.
type Client struct {
	sock        mangos.Socket
	addr        string
	sendTimeout time.Duration
	recvTimeout time.Duration
	logger      logging.Logger
	registry    *metrics.Registry
}

// NewClient dials a worker. The socket reconnects in the background if
// the worker restarts.
func NewClient(cfg config.RemoteConfig) (*Client, error) {
	if cfg.DialAddr == "" {
		return nil, fmt.Errorf("remote client requires a dial address")
	}

	sock, err := req.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("creating req socket: %w", err)
	}
	if err := sock.Dial(cfg.DialAddr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("dialing worker at %s: %w", cfg.DialAddr, err)
	}

	return &Client{
		sock:        sock,
		addr:        cfg.DialAddr,
		sendTimeout: cfg.SendTimeout.Std(),
		recvTimeout: cfg.RecvTimeout.Std(),
		logger:      logging.DefaultLogger().With(logging.Component("remote_client")),
		registry:    metrics.DefaultRegistry(),
	}, nil
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.sock.Close()
}

// KCommunities runs the plain partition variant on the worker.
func (c *Client) KCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error) {
	return c.solvePartition(ctx, community.VariantKCommunity, g, k, opts)
}

// ConnectedKCommunities runs the connected partition variant on the
// worker.
func (c *Client) ConnectedKCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error) {
	return c.solvePartition(ctx, community.VariantConnectedKCommunity, g, k, opts)
}

// MaxCommunity runs the plain maximum-community variant on the worker.
func (c *Client) MaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error) {
	return c.solveSubgraph(ctx, community.VariantMaxCommunity, g, opts)
}

// ConnectedMaxCommunity runs the connected maximum-community variant on
// the worker.
func (c *Client) ConnectedMaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error) {
	return c.solveSubgraph(ctx, community.VariantConnectedMaxCommunity, g, opts)
}

func (c *Client) solvePartition(ctx context.Context, variant community.Variant, g *graph.Graph, k int, opts community.Options) (*community.Partition, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: graph is nil", community.ErrInvalidInput)
	}

	resp, err := c.roundTrip(ctx, &SolveRequest{
		ID:           uuid.New().String(),
		Variant:      string(variant),
		Matrix:       g.Rows(),
		K:            k,
		Generalized:  opts.Generalized,
		TimeLimitMs:  opts.TimeLimit.Milliseconds(),
		MaxCutRounds: opts.MaxCutRounds,
	}, opts.TimeLimit)
	if err != nil {
		return nil, err
	}

	if resp.Status != StatusOK {
		return nil, responseError(resp)
	}
	if resp.Partition == nil {
		return nil, fmt.Errorf("worker answered ok without a partition")
	}
	return wireToPartition(resp.Partition), nil
}

func (c *Client) solveSubgraph(ctx context.Context, variant community.Variant, g *graph.Graph, opts community.Options) (*community.Subgraph, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: graph is nil", community.ErrInvalidInput)
	}

	resp, err := c.roundTrip(ctx, &SolveRequest{
		ID:           uuid.New().String(),
		Variant:      string(variant),
		Matrix:       g.Rows(),
		TimeLimitMs:  opts.TimeLimit.Milliseconds(),
		MaxCutRounds: opts.MaxCutRounds,
	}, opts.TimeLimit)
	if err != nil {
		return nil, err
	}

	if resp.Status != StatusOK {
		return nil, responseError(resp)
	}
	if resp.Subgraph == nil {
		return nil, fmt.Errorf("worker answered ok without a subgraph")
	}
	return wireToSubgraph(resp.Subgraph), nil
}

// roundTrip sends one request over its own socket context, so parallel
// solves don't serialize behind each other.
func (c *Client) roundTrip(ctx context.Context, request *SolveRequest, timeLimit time.Duration) (*SolveResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding solve request: %w", err)
	}

	sc, err := c.sock.OpenContext()
	if err != nil {
		return nil, fmt.Errorf("opening socket context: %w", err)
	}
	defer sc.Close()

	if err := sc.SetOption(mangos.OptionSendDeadline, c.sendTimeout); err != nil {
		return nil, fmt.Errorf("setting send deadline: %w", err)
	}
	if err := sc.SetOption(mangos.OptionRecvDeadline, c.replyDeadline(timeLimit)); err != nil {
		return nil, fmt.Errorf("setting recv deadline: %w", err)
	}

	start := time.Now()
	c.logger.Debug("forwarding solve to worker",
		logging.RunID(request.ID),
		logging.Variant(request.Variant),
		logging.String("addr", c.addr))

	if err := sc.Send(data); err != nil {
		c.registry.RecordRemoteRequest(request.Variant, "send_error", time.Since(start))
		return nil, fmt.Errorf("sending solve request to %s: %w", c.addr, err)
	}

	raw, err := sc.Recv()
	if err != nil {
		c.registry.RecordRemoteRequest(request.Variant, "recv_error", time.Since(start))
		return nil, fmt.Errorf("waiting for worker reply from %s: %w", c.addr, err)
	}

	var resp SolveResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.registry.RecordRemoteRequest(request.Variant, "decode_error", time.Since(start))
		return nil, fmt.Errorf("decoding worker reply: %w", err)
	}

	c.registry.RecordRemoteRequest(request.Variant, resp.Status, time.Since(start))
	c.logger.Debug("worker reply received",
		logging.RunID(request.ID),
		logging.Status(resp.Status),
		logging.Latency(time.Since(start)))
	return &resp, nil
}

// replyDeadline stretches the receive deadline past the solve budget;
// the reply cannot arrive before the solve finishes.
func (c *Client) replyDeadline(timeLimit time.Duration) time.Duration {
	deadline := c.recvTimeout
	if deadline <= 0 {
		deadline = config.DefaultRecvTimeout
	}
	if timeLimit > 0 && timeLimit+10*time.Second > deadline {
		deadline = timeLimit + 10*time.Second
	}
	return deadline
}
