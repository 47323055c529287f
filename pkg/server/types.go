package server

import "time"

// CommunitiesRequest asks for a partition of a graph into k communities.
type CommunitiesRequest struct {
	// Matrix is the symmetric 0/1 adjacency matrix of the graph.
	Matrix [][]int `json:"matrix"`

	// K is the number of community labels.
	K int `json:"k"`

	// Connected requires every community to induce a single component.
	Connected bool `json:"connected,omitempty"`

	// Generalized drops the two-member floor, allowing empty communities.
	Generalized bool `json:"generalized,omitempty"`

	// TimeLimitMs shortens the server's solve budget for this request.
	// Zero uses the configured limit; values above it are clamped.
	TimeLimitMs int64 `json:"time_limit_ms,omitempty"`
}

// SubgraphRequest asks for a maximum community inside a graph.
type SubgraphRequest struct {
	Matrix    [][]int `json:"matrix"`
	Connected bool    `json:"connected,omitempty"`

	// TimeLimitMs shortens the server's solve budget for this request.
	TimeLimitMs int64 `json:"time_limit_ms,omitempty"`
}

// CommunitiesResponse carries a detected partition. Status is "optimal"
// for proven results and "timeout" for incumbents from a cut-off search.
type CommunitiesResponse struct {
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

// SubgraphResponse carries a detected maximum community.
type SubgraphResponse struct {
	Status     string `json:"status"`
	Variant    string `json:"variant"`
	Vertices   []int  `json:"vertices"`
	Size       int    `json:"size"`
	Optimal    bool   `json:"optimal"`
	Rounds     int    `json:"rounds"`
	Cuts       int    `json:"cuts"`
	DurationMs int64  `json:"duration_ms"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// LoginRequest carries credentials for token issuance.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries a signed bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}
