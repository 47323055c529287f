package remote

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// remoteConfig builds a config for an in-process socket pair.
func remoteConfig(addr string) config.RemoteConfig {
	return config.RemoteConfig{
		ListenAddr:  addr,
		DialAddr:    addr,
		SendTimeout: config.Duration(5 * time.Second),
		RecvTimeout: config.Duration(60 * time.Second),
	}
}

// startPair spins up a worker and a client over inproc and tears both
// down with the test.
func startPair(t *testing.T, addr string) *Client {
	t.Helper()

	w, err := NewWorker(remoteConfig(addr))
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Worker start failed: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	c, err := NewClient(remoteConfig(addr))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c
}

// sortedMembers drops empty communities and orders the rest by their
// lowest vertex.
func sortedMembers(p *community.Partition) [][]int {
	var out [][]int
	for _, m := range p.Members {
		if len(m) > 0 {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func testOptions() community.Options {
	return community.Options{TimeLimit: 30 * time.Second}
}

// TestRemote_KCommunitiesRoundTrip tests a full solve through the
// socket pair
func TestRemote_KCommunitiesRoundTrip(t *testing.T) {
	c := startPair(t, "inproc://solve-kcommunities")

	g := graph.Disjoint(graph.Complete(3), graph.Complete(3))
	p, err := c.KCommunities(context.Background(), g, 2, testOptions())
	if err != nil {
		t.Fatalf("KCommunities failed: %v", err)
	}

	got := sortedMembers(p)
	want := [][]int{{0, 1, 2}, {3, 4, 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected communities %v, got %v", want, got)
	}
	if !p.Optimal {
		t.Error("Expected an optimal result")
	}
	if len(p.Labels) != 6 {
		t.Errorf("Expected 6 labels, got %d", len(p.Labels))
	}
}

// TestRemote_ConnectedKCommunities tests the connected partition variant
// over the wire
func TestRemote_ConnectedKCommunities(t *testing.T) {
	c := startPair(t, "inproc://solve-connected-k")

	g := graph.Disjoint(graph.Complete(3), graph.Complete(3))
	p, err := c.ConnectedKCommunities(context.Background(), g, 2, testOptions())
	if err != nil {
		t.Fatalf("ConnectedKCommunities failed: %v", err)
	}

	if len(sortedMembers(p)) != 2 {
		t.Errorf("Expected 2 communities, got %v", p.Members)
	}
}

// TestRemote_MaxCommunity tests the maximum-community variant over the
// wire: a 4-clique keeps three vertices
func TestRemote_MaxCommunity(t *testing.T) {
	c := startPair(t, "inproc://solve-max")

	sg, err := c.MaxCommunity(context.Background(), graph.Complete(4), testOptions())
	if err != nil {
		t.Fatalf("MaxCommunity failed: %v", err)
	}

	if sg.Size() != 3 {
		t.Errorf("Expected size 3, got %d", sg.Size())
	}
	if !sg.Optimal {
		t.Error("Expected an optimal result")
	}
}

// TestRemote_ConnectedMaxCommunity tests that connectivity survives the
// wire: two disjoint triangles yield a single triangle
func TestRemote_ConnectedMaxCommunity(t *testing.T) {
	c := startPair(t, "inproc://solve-connected-max")

	g := graph.Disjoint(graph.Complete(3), graph.Complete(3))
	sg, err := c.ConnectedMaxCommunity(context.Background(), g, testOptions())
	if err != nil {
		t.Fatalf("ConnectedMaxCommunity failed: %v", err)
	}

	if sg.Size() != 3 {
		t.Errorf("Expected size 3, got %d", sg.Size())
	}
	if sg.Cuts == 0 {
		t.Error("Expected at least one connectivity cut")
	}
}

// TestRemote_InfeasiblePreserved tests that a proven infeasibility keeps
// its identity across the wire
func TestRemote_InfeasiblePreserved(t *testing.T) {
	c := startPair(t, "inproc://solve-infeasible")

	_, err := c.KCommunities(context.Background(), graph.Path(4), 2, testOptions())
	if !errors.Is(err, community.ErrInfeasible) {
		t.Fatalf("Expected ErrInfeasible, got %v", err)
	}
	if !community.IsInfeasible(err) {
		t.Error("IsInfeasible should report true")
	}
}

// TestRemote_InvalidInputPreserved tests that parameter rejection keeps
// its identity across the wire
func TestRemote_InvalidInputPreserved(t *testing.T) {
	c := startPair(t, "inproc://solve-invalid")

	_, err := c.KCommunities(context.Background(), graph.Complete(3), 0, testOptions())
	if !community.IsInvalidInput(err) {
		t.Fatalf("Expected an invalid-input error, got %v", err)
	}
}

// captureArchiver records every saved run.
type captureArchiver struct {
	records []*archive.Record
}

func (a *captureArchiver) Save(ctx context.Context, rec *archive.Record) error {
	a.records = append(a.records, rec)
	return nil
}

// TestRemote_WorkerArchives tests run recording on the worker side
func TestRemote_WorkerArchives(t *testing.T) {
	addr := "inproc://solve-archive"

	w, err := NewWorker(remoteConfig(addr))
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}
	arch := &captureArchiver{}
	w.SetArchiver(arch)
	if err := w.Start(); err != nil {
		t.Fatalf("Worker start failed: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	c, err := NewClient(remoteConfig(addr))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	g := graph.Disjoint(graph.Complete(3), graph.Complete(3))
	if _, err := c.KCommunities(context.Background(), g, 2, testOptions()); err != nil {
		t.Fatalf("KCommunities failed: %v", err)
	}

	if len(arch.records) != 1 {
		t.Fatalf("Expected 1 archived record, got %d", len(arch.records))
	}
	rec := arch.records[0]
	if rec.Variant != string(community.VariantKCommunity) {
		t.Errorf("Expected variant %q, got %q", community.VariantKCommunity, rec.Variant)
	}
	if rec.VertexCount != 6 {
		t.Errorf("Expected 6 vertices, got %d", rec.VertexCount)
	}
}

// TestWorker_DispatchUnknownVariant tests variant validation without a
// socket
func TestWorker_DispatchUnknownVariant(t *testing.T) {
	w, err := NewWorker(remoteConfig("inproc://solve-unused-1"))
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}

	raw, _ := json.Marshal(SolveRequest{
		ID:      "r1",
		Variant: "bogus",
		Matrix:  graph.Complete(3).Rows(),
	})
	resp := w.dispatch(raw)

	if resp.Status != StatusInvalidInput {
		t.Errorf("Expected status %q, got %q", StatusInvalidInput, resp.Status)
	}
	if resp.ID != "r1" {
		t.Errorf("Expected the request ID echoed, got %q", resp.ID)
	}
}

// TestWorker_DispatchMalformedRequest tests garbage on the socket
func TestWorker_DispatchMalformedRequest(t *testing.T) {
	w, err := NewWorker(remoteConfig("inproc://solve-unused-2"))
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}

	resp := w.dispatch([]byte("{broken"))
	if resp.Status != StatusInvalidInput {
		t.Errorf("Expected status %q, got %q", StatusInvalidInput, resp.Status)
	}
}

// TestWorker_StopIdempotent tests repeated stops
func TestWorker_StopIdempotent(t *testing.T) {
	w, err := NewWorker(remoteConfig("inproc://solve-stop"))
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Second stop failed: %v", err)
	}
}

// TestNewClient_RequiresDialAddr tests constructor validation
func TestNewClient_RequiresDialAddr(t *testing.T) {
	if _, err := NewClient(config.RemoteConfig{}); err == nil {
		t.Fatal("Expected an error for a missing dial address")
	}
}

// TestNewWorker_RequiresListenAddr tests constructor validation
func TestNewWorker_RequiresListenAddr(t *testing.T) {
	if _, err := NewWorker(config.RemoteConfig{}); err == nil {
		t.Fatal("Expected an error for a missing listen address")
	}
}

// TestResponseError_Timeout tests that a timeout reply rebuilds a
// TimeoutError with its incumbent
func TestResponseError_Timeout(t *testing.T) {
	resp := &SolveResponse{
		Status:  StatusTimeout,
		LimitMs: 1500,
		Partition: &PartitionWire{
			Members: [][]int{{0, 1, 2}},
			Labels:  []int{0, 0, 0},
			Rounds:  2,
		},
	}

	err := responseError(resp)

	var te *community.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Expected a TimeoutError, got %v", err)
	}
	if te.Limit != 1500*time.Millisecond {
		t.Errorf("Expected limit 1.5s, got %v", te.Limit)
	}
	if te.Partition == nil || len(te.Partition.Members) != 1 {
		t.Errorf("Expected the incumbent attached, got %+v", te.Partition)
	}
	if !community.IsTimeout(err) {
		t.Error("IsTimeout should report true")
	}
}

// TestRewrap_NoDoubledSentinel tests message reconstruction
func TestRewrap_NoDoubledSentinel(t *testing.T) {
	err := rewrap(community.ErrInvalidInput, "invalid input: k must be at least 1")
	if err.Error() != "invalid input: k must be at least 1" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
	if !errors.Is(err, community.ErrInvalidInput) {
		t.Error("Sentinel lost in rewrap")
	}

	if err := rewrap(community.ErrInfeasible, community.ErrInfeasible.Error()); err != community.ErrInfeasible {
		t.Errorf("Expected the bare sentinel, got %v", err)
	}
}

// TestClassify tests error-to-status mapping
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"NoError", nil, StatusOK},
		{"InvalidInput", community.ErrInvalidInput, StatusInvalidInput},
		{"Infeasible", community.ErrInfeasible, StatusInfeasible},
		{"Timeout", &community.TimeoutError{Limit: time.Second}, StatusTimeout},
		{"Internal", errors.New("boom"), StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
