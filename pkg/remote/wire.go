// Package remote moves detection runs onto dedicated workers over
// nanomsg req/rep sockets. The client satisfies the server's runner
// seam; workers solve in-process and answer with the same results and
// error taxonomy callers would see locally.
package remote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dd0wney/cluso-communities/pkg/community"
)

// Response status values on the wire.
const (
	StatusOK           = "ok"
	StatusInvalidInput = "invalid_input"
	StatusInfeasible   = "infeasible"
	StatusTimeout      = "timeout"
	StatusError        = "error"
)

// SolveRequest asks a worker for one detection run.
type SolveRequest struct {
	ID      string  `json:"id"`
	Variant string  `json:"variant"`
	Matrix  [][]int `json:"matrix"`

	// K and Generalized apply to the partition variants only.
	K           int  `json:"k,omitempty"`
	Generalized bool `json:"generalized,omitempty"`

	// TimeLimitMs bounds the solve. Zero means the worker default,
	// negative means no limit.
	TimeLimitMs int64 `json:"time_limit_ms,omitempty"`

	// MaxCutRounds caps connectivity re-solves. Zero means a per-graph
	// default.
	MaxCutRounds int `json:"max_cut_rounds,omitempty"`
}

// SolveResponse carries a worker's answer. Status selects which of the
// remaining fields are meaningful: a partition or subgraph payload for
// ok, an incumbent plus LimitMs for timeout, an error message otherwise.
type SolveResponse struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	LimitMs   int64          `json:"limit_ms,omitempty"`
	Partition *PartitionWire `json:"partition,omitempty"`
	Subgraph  *SubgraphWire  `json:"subgraph,omitempty"`
}

// PartitionWire is a community partition in transit.
type PartitionWire struct {
	Members    [][]int `json:"members"`
	Labels     []int   `json:"labels"`
	Optimal    bool    `json:"optimal"`
	Rounds     int     `json:"rounds"`
	Cuts       int     `json:"cuts"`
	DurationMs int64   `json:"duration_ms"`
}

// SubgraphWire is a maximum community in transit.
type SubgraphWire struct {
	Vertices   []int `json:"vertices"`
	Optimal    bool  `json:"optimal"`
	Rounds     int   `json:"rounds"`
	Cuts       int   `json:"cuts"`
	DurationMs int64 `json:"duration_ms"`
}

func partitionToWire(p *community.Partition) *PartitionWire {
	if p == nil {
		return nil
	}
	return &PartitionWire{
		Members:    p.Members,
		Labels:     p.Labels,
		Optimal:    p.Optimal,
		Rounds:     p.Rounds,
		Cuts:       p.Cuts,
		DurationMs: p.Duration.Milliseconds(),
	}
}

func wireToPartition(w *PartitionWire) *community.Partition {
	if w == nil {
		return nil
	}
	return &community.Partition{
		Members:  w.Members,
		Labels:   w.Labels,
		Optimal:  w.Optimal,
		Rounds:   w.Rounds,
		Cuts:     w.Cuts,
		Duration: time.Duration(w.DurationMs) * time.Millisecond,
	}
}

func subgraphToWire(sg *community.Subgraph) *SubgraphWire {
	if sg == nil {
		return nil
	}
	return &SubgraphWire{
		Vertices:   sg.Vertices,
		Optimal:    sg.Optimal,
		Rounds:     sg.Rounds,
		Cuts:       sg.Cuts,
		DurationMs: sg.Duration.Milliseconds(),
	}
}

func wireToSubgraph(w *SubgraphWire) *community.Subgraph {
	if w == nil {
		return nil
	}
	return &community.Subgraph{
		Vertices: w.Vertices,
		Optimal:  w.Optimal,
		Rounds:   w.Rounds,
		Cuts:     w.Cuts,
		Duration: time.Duration(w.DurationMs) * time.Millisecond,
	}
}

// responseError rebuilds the local error taxonomy from a non-ok
// response, so errors.Is/As keep working on the caller's side.
func responseError(resp *SolveResponse) error {
	switch resp.Status {
	case StatusInvalidInput:
		return rewrap(community.ErrInvalidInput, resp.Error)
	case StatusInfeasible:
		return rewrap(community.ErrInfeasible, resp.Error)
	case StatusTimeout:
		return &community.TimeoutError{
			Limit:     time.Duration(resp.LimitMs) * time.Millisecond,
			Partition: wireToPartition(resp.Partition),
			Subgraph:  wireToSubgraph(resp.Subgraph),
		}
	default:
		if resp.Error == "" {
			return fmt.Errorf("worker answered status %q with no detail", resp.Status)
		}
		return errors.New(resp.Error)
	}
}

// rewrap attaches a sentinel to a wire message without doubling the
// sentinel's own text.
func rewrap(sentinel error, msg string) error {
	msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	if msg == "" || msg == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// classify maps a solve error onto a wire status.
func classify(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case community.IsInvalidInput(err):
		return StatusInvalidInput
	case community.IsInfeasible(err):
		return StatusInfeasible
	case community.IsTimeout(err):
		return StatusTimeout
	default:
		return StatusError
	}
}
