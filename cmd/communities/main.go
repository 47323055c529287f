package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/logging"
	"github.com/dd0wney/cluso-communities/pkg/remote"
)

// runner is the solve surface shared by in-process detection and a
// remote worker client.
type runner interface {
	KCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error)
	ConnectedKCommunities(ctx context.Context, g *graph.Graph, k int, opts community.Options) (*community.Partition, error)
	MaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error)
	ConnectedMaxCommunity(ctx context.Context, g *graph.Graph, opts community.Options) (*community.Subgraph, error)
}

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

// partitionResult matches the server's JSON response shape.
type partitionResult struct {
	Status      string  `json:"status"`
	Variant     string  `json:"variant"`
	Members     [][]int `json:"members"`
	Labels      []int   `json:"labels"`
	Communities int     `json:"communities"`
	Optimal     bool    `json:"optimal"`
	Rounds      int     `json:"rounds"`
	Cuts        int     `json:"cuts"`
	DurationMs  int64   `json:"duration_ms"`
}

type subgraphResult struct {
	Status     string `json:"status"`
	Variant    string `json:"variant"`
	Vertices   []int  `json:"vertices"`
	Size       int    `json:"size"`
	Optimal    bool   `json:"optimal"`
	Rounds     int    `json:"rounds"`
	Cuts       int    `json:"cuts"`
	DurationMs int64  `json:"duration_ms"`
}

func main() {
	in := flag.String("in", "-", "Adjacency matrix as JSON; - reads stdin")
	out := flag.String("out", "-", "Result destination; - writes stdout")
	k := flag.Int("k", 0, "Number of communities; 0 solves for the maximum community instead")
	connected := flag.Bool("connected", false, "Require every community to induce a connected subgraph")
	generalized := flag.Bool("generalized", false, "Allow empty communities (partition variants only)")
	timeLimit := flag.Duration("time-limit", 0, "Solve budget; 0 uses the built-in default, negative disables the limit")
	cutRounds := flag.Int("cut-rounds", 0, "Cap on connectivity cut rounds; 0 picks a per-graph default")
	remoteAddr := flag.String("remote", "", "Send the solve to a worker at this address instead of running locally")
	archiveDir := flag.String("archive", "", "Record the finished run in this archive directory")
	verbose := flag.Bool("v", false, "Log solver progress to stderr")
	flag.Parse()

	level := logging.WarnLevel
	if *verbose {
		level = logging.DebugLevel
	}
	logger := logging.NewJSONLogger(os.Stderr, level)
	logging.SetDefaultLogger(logger)

	matrix, err := readMatrix(*in)
	if err != nil {
		fail(2, "reading matrix: %v", err)
	}
	g, err := graph.FromRows(matrix)
	if err != nil {
		fail(2, "invalid matrix: %v", err)
	}

	r := runner(localRunner{})
	if *remoteAddr != "" {
		defaults := config.DefaultConfig().Remote
		defaults.DialAddr = *remoteAddr
		client, err := remote.NewClient(defaults)
		if err != nil {
			fail(1, "connecting to worker: %v", err)
		}
		defer client.Close()
		r = client
	}

	opts := community.Options{
		TimeLimit:    *timeLimit,
		Generalized:  *generalized,
		MaxCutRounds: *cutRounds,
		Logger:       logger,
	}

	ctx := context.Background()
	start := time.Now()

	var (
		p  *community.Partition
		sg *community.Subgraph
	)
	variant := pickVariant(*k, *connected)
	switch variant {
	case community.VariantKCommunity:
		p, err = r.KCommunities(ctx, g, *k, opts)
	case community.VariantConnectedKCommunity:
		p, err = r.ConnectedKCommunities(ctx, g, *k, opts)
	case community.VariantMaxCommunity:
		sg, err = r.MaxCommunity(ctx, g, opts)
	case community.VariantConnectedMaxCommunity:
		sg, err = r.ConnectedMaxCommunity(ctx, g, opts)
	}

	status := "optimal"
	if err != nil {
		var te *community.TimeoutError
		switch {
		case errors.As(err, &te) && (te.Partition != nil || te.Subgraph != nil):
			// Keep the incumbent, flag the result as a cut-off search.
			status = "timeout"
			p, sg = te.Partition, te.Subgraph
		case community.IsInvalidInput(err):
			fail(2, "%v", err)
		case community.IsInfeasible(err):
			fail(3, "%v", err)
		case community.IsTimeout(err):
			fail(4, "no result within the time limit (%v)", time.Since(start).Round(time.Millisecond))
		default:
			fail(1, "%v", err)
		}
	}

	if *archiveDir != "" {
		archiveRun(ctx, *archiveDir, variant, g, *k, *generalized, p, sg, logger)
	}

	if err := writeResult(*out, variant, status, p, sg); err != nil {
		fail(1, "writing result: %v", err)
	}
}

func pickVariant(k int, connected bool) community.Variant {
	switch {
	case k > 0 && connected:
		return community.VariantConnectedKCommunity
	case k > 0:
		return community.VariantKCommunity
	case connected:
		return community.VariantConnectedMaxCommunity
	default:
		return community.VariantMaxCommunity
	}
}

func readMatrix(path string) ([][]int, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var matrix [][]int
	if err := json.Unmarshal(raw, &matrix); err != nil {
		return nil, fmt.Errorf("expected a JSON adjacency matrix: %w", err)
	}
	return matrix, nil
}

func writeResult(path string, variant community.Variant, status string, p *community.Partition, sg *community.Subgraph) error {
	var result any
	switch {
	case p != nil:
		result = partitionResult{
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
	case sg != nil:
		result = subgraphResult{
			Status:     status,
			Variant:    string(variant),
			Vertices:   sg.Vertices,
			Size:       sg.Size(),
			Optimal:    sg.Optimal,
			Rounds:     sg.Rounds,
			Cuts:       sg.Cuts,
			DurationMs: sg.Duration.Milliseconds(),
		}
	default:
		return fmt.Errorf("no result to write")
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func archiveRun(ctx context.Context, dir string, variant community.Variant, g *graph.Graph, k int, generalized bool, p *community.Partition, sg *community.Subgraph, logger logging.Logger) {
	store, err := archive.NewStore(ctx, config.ArchiveConfig{Dir: dir})
	if err != nil {
		logger.Warn("opening archive", logging.Error(err))
		return
	}
	defer store.Close()

	var rec *archive.Record
	switch {
	case p != nil:
		rec = archive.NewPartitionRecord(variant, g, k, generalized, p)
	case sg != nil:
		rec = archive.NewSubgraphRecord(variant, g, sg)
	default:
		return
	}
	if err := store.Save(ctx, rec); err != nil {
		logger.Warn("archiving run", logging.Error(err))
	}
}

func fail(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "communities: "+format+"\n", args...)
	os.Exit(code)
}
