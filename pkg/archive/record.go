// Package archive persists finished detection runs as snappy-compressed
// JSON records: an append-only log on disk, optionally mirrored to S3.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/graph"
)

// Record is one archived detection run.
type Record struct {
	RunID     string    `json:"run_id"`
	Variant   string    `json:"variant"`
	CreatedAt time.Time `json:"created_at"`

	// Input shape
	VertexCount int  `json:"vertex_count"`
	EdgeCount   int  `json:"edge_count"`
	K           int  `json:"k,omitempty"`
	Generalized bool `json:"generalized,omitempty"`

	// Result. Members and Labels are set for partition runs, Vertices
	// for max-community runs.
	Status     string  `json:"status"`
	Members    [][]int `json:"members,omitempty"`
	Labels     []int   `json:"labels,omitempty"`
	Vertices   []int   `json:"vertices,omitempty"`
	Optimal    bool    `json:"optimal"`
	Rounds     int     `json:"rounds"`
	Cuts       int     `json:"cuts"`
	DurationMs int64   `json:"duration_ms"`
}

// NewPartitionRecord builds a record for a partition run. Timed-out
// incumbents are recorded with status "timeout".
func NewPartitionRecord(variant community.Variant, g *graph.Graph, k int, generalized bool, p *community.Partition) *Record {
	rec := newRecord(variant, g, p.Optimal)
	rec.K = k
	rec.Generalized = generalized
	rec.Members = p.Members
	rec.Labels = p.Labels
	rec.Rounds = p.Rounds
	rec.Cuts = p.Cuts
	rec.DurationMs = p.Duration.Milliseconds()
	return rec
}

// NewSubgraphRecord builds a record for a max-community run.
func NewSubgraphRecord(variant community.Variant, g *graph.Graph, sg *community.Subgraph) *Record {
	rec := newRecord(variant, g, sg.Optimal)
	rec.Vertices = sg.Vertices
	rec.Rounds = sg.Rounds
	rec.Cuts = sg.Cuts
	rec.DurationMs = sg.Duration.Milliseconds()
	return rec
}

func newRecord(variant community.Variant, g *graph.Graph, optimal bool) *Record {
	status := "optimal"
	if !optimal {
		status = "timeout"
	}
	return &Record{
		RunID:       uuid.New().String(),
		Variant:     string(variant),
		CreatedAt:   time.Now().UTC(),
		VertexCount: g.N(),
		EdgeCount:   g.EdgeCount(),
		Status:      status,
		Optimal:     optimal,
	}
}

// Marshal returns the snappy-compressed JSON encoding of the record.
func (r *Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding record %s: %w", r.RunID, err)
	}
	return snappy.Encode(nil, data), nil
}

// UnmarshalRecord decodes a snappy-compressed JSON record.
func UnmarshalRecord(compressed []byte) (*Record, error) {
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, nil
}
