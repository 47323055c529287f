package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-communities/pkg/archive"
	"github.com/dd0wney/cluso-communities/pkg/config"
	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/remote"
	"github.com/dd0wney/cluso-communities/pkg/server"
)

// TestCompleteDetectionWorkflow walks a full user journey: health check,
// login, authenticated solves over JSON and GraphQL, and credential
// rejection.
func TestCompleteDetectionWorkflow(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.JWTSecret = "e2e-secret-e2e-secret-e2e-secret"
	cfg.Server.AdminPassword = "correct-horse-battery"
	cfg.Solver.TimeLimit = config.Duration(30 * time.Second)

	baseURL := startTestServer(t, cfg, nil, nil)

	t.Log("Step 1: Health check...")
	resp, err := http.Get(baseURL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody(t, resp)
	assert.Equal(t, "healthy", health["status"])

	t.Log("Step 2: Login...")
	status, login := postJSON(t, baseURL+"/api/v1/auth/login", "", map[string]any{
		"username": "admin",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, status)
	token, ok := login["token"].(string)
	require.True(t, ok, "login should return a token")
	require.NotEmpty(t, token)

	t.Log("Step 3: Detect two communities in two disjoint triangles...")
	status, result := postJSON(t, baseURL+"/api/v1/communities", token, map[string]any{
		"matrix": twoTriangles(),
		"k":      2,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "optimal", result["status"])
	assert.Equal(t, "k_community", result["variant"])
	assert.Equal(t, float64(2), result["communities"])

	t.Log("Step 4: Find the largest connected community...")
	status, result = postJSON(t, baseURL+"/api/v1/subgraph", token, map[string]any{
		"matrix":    twoTriangles(),
		"connected": true,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "connected_max_community", result["variant"])
	assert.Equal(t, float64(3), result["size"])

	t.Log("Step 5: Ask the same question over GraphQL...")
	status, gql := postJSON(t, baseURL+"/api/v1/graphql", token, map[string]any{
		"query": `{ communities(matrix: ` + jsonMatrix(t, twoTriangles()) + `, k: 2) { status communities } }`,
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, gql["errors"], "graphql query should succeed")
	data, ok := gql["data"].(map[string]any)
	require.True(t, ok)
	communities, ok := data["communities"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "optimal", communities["status"])
	assert.Equal(t, float64(2), communities["communities"])

	t.Log("Step 6: Reject a request without credentials...")
	status, _ = postJSON(t, baseURL+"/api/v1/communities", "", map[string]any{
		"matrix": twoTriangles(),
		"k":      2,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

// TestConcurrentSolves runs many detection requests at once and expects
// all of them to succeed once the semaphore lets them through.
func TestConcurrentSolves(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.AuthDisabled = true
	cfg.Solver.TimeLimit = config.Duration(30 * time.Second)
	cfg.Solver.MaxConcurrent = 4

	baseURL := startTestServer(t, cfg, nil, nil)

	numWorkers := 8
	solvesPerWorker := 3

	var wg sync.WaitGroup
	errCh := make(chan error, numWorkers*solvesPerWorker)

	t.Logf("Spawning %d workers, each running %d solves...", numWorkers, solvesPerWorker)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		workerID := i

		go func() {
			defer wg.Done()
			for j := 0; j < solvesPerWorker; j++ {
				var payload map[string]any
				var path string
				if (workerID+j)%2 == 0 {
					path = "/api/v1/communities"
					payload = map[string]any{"matrix": twoTriangles(), "k": 2}
				} else {
					path = "/api/v1/subgraph"
					payload = map[string]any{"matrix": graph.Complete(4).Rows()}
				}

				status, body, err := postJSONWithError(baseURL+path, "", payload)
				if err != nil {
					errCh <- fmt.Errorf("worker %d solve %d: %w", workerID, j, err)
					return
				}
				if status != http.StatusOK {
					errCh <- fmt.Errorf("worker %d solve %d: status %d body %s", workerID, j, status, body)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)

	var errList []error
	for err := range errCh {
		errList = append(errList, err)
	}
	require.Empty(t, errList, "All concurrent solves should succeed")
	t.Logf("✓ %d solves completed", numWorkers*solvesPerWorker)
}

// TestArchiveRoundTrip solves through the API, then reopens the archive
// and expects both runs to read back intact.
func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archiveCfg := config.ArchiveConfig{Dir: dir}

	store, err := archive.NewStore(context.Background(), archiveCfg)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Server.AuthDisabled = true
	cfg.Solver.TimeLimit = config.Duration(30 * time.Second)

	baseURL := startTestServer(t, cfg, nil, store)

	t.Log("Recording a partition run and a subgraph run...")
	status, _ := postJSON(t, baseURL+"/api/v1/communities", "", map[string]any{
		"matrix": twoTriangles(),
		"k":      2,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = postJSON(t, baseURL+"/api/v1/subgraph", "", map[string]any{
		"matrix": graph.Complete(4).Rows(),
	})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, store.Close())

	t.Log("Reopening the archive...")
	reopened, err := archive.NewStore(context.Background(), archiveCfg)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "k_community", records[0].Variant)
	assert.Equal(t, 6, records[0].VertexCount)
	assert.Equal(t, "max_community", records[1].Variant)
	assert.Equal(t, 4, records[1].VertexCount)
	for _, rec := range records {
		assert.NotEmpty(t, rec.RunID)
		assert.Equal(t, "optimal", rec.Status)
	}
}

// TestRemoteWorkerWorkflow chains the whole system together: HTTP API,
// remote client, socket worker, solver and back.
func TestRemoteWorkerWorkflow(t *testing.T) {
	addr := "inproc://e2e-worker"
	remoteCfg := config.RemoteConfig{
		ListenAddr:  addr,
		DialAddr:    addr,
		SendTimeout: config.Duration(5 * time.Second),
		RecvTimeout: config.Duration(60 * time.Second),
	}

	worker, err := remote.NewWorker(remoteCfg)
	require.NoError(t, err)
	require.NoError(t, worker.Start())
	t.Cleanup(func() { worker.Stop() })

	client, err := remote.NewClient(remoteCfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	cfg := config.DefaultConfig()
	cfg.Server.AuthDisabled = true
	cfg.Solver.TimeLimit = config.Duration(30 * time.Second)

	baseURL := startTestServer(t, cfg, client, nil)

	t.Log("Solving through the worker...")
	status, result := postJSON(t, baseURL+"/api/v1/communities", "", map[string]any{
		"matrix": twoTriangles(),
		"k":      2,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "optimal", result["status"])
	assert.Equal(t, float64(2), result["communities"])

	t.Log("Infeasible instances keep their status across the socket...")
	status, result = postJSON(t, baseURL+"/api/v1/communities", "", map[string]any{
		"matrix": graph.Path(4).Rows(),
		"k":      2,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, float64(http.StatusUnprocessableEntity), result["code"])
}

// TestErrorHandling exercises the failure surface end to end.
func TestErrorHandling(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.AuthDisabled = true
	cfg.Solver.TimeLimit = config.Duration(30 * time.Second)

	baseURL := startTestServer(t, cfg, nil, nil)

	t.Log("Test 1: Invalid JSON body...")
	resp, err := http.Post(baseURL+"/api/v1/communities", "application/json",
		bytes.NewBufferString(`{invalid json`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	t.Log("Test 2: Asymmetric matrix...")
	status, _ := postJSON(t, baseURL+"/api/v1/communities", "", map[string]any{
		"matrix": [][]int{{0, 1}, {0, 0}},
		"k":      1,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	t.Log("Test 3: Infeasible instance...")
	status, _ = postJSON(t, baseURL+"/api/v1/communities", "", map[string]any{
		"matrix": graph.Path(4).Rows(),
		"k":      2,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	t.Log("Test 4: Wrong method...")
	resp, err = http.Get(baseURL + "/api/v1/communities")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()

	t.Log("Test 5: Metrics endpoint stays readable...")
	resp, err = http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(body), "communities_http_requests_total")
}

// Helper functions

func startTestServer(t *testing.T, cfg *config.Config, runner server.Runner, archiver server.Archiver) string {
	t.Helper()

	s, err := server.NewServer(cfg)
	require.NoError(t, err, "Failed to create server")
	if runner != nil {
		s.SetRunner(runner)
	}
	if archiver != nil {
		s.SetArchiver(archiver)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func twoTriangles() [][]int {
	return graph.Disjoint(graph.Complete(3), graph.Complete(3)).Rows()
}

func jsonMatrix(t *testing.T, matrix [][]int) string {
	t.Helper()
	raw, err := json.Marshal(matrix)
	require.NoError(t, err)
	return string(raw)
}

func postJSON(t *testing.T, url, token string, payload map[string]any) (int, map[string]any) {
	t.Helper()
	status, body, err := postJSONWithError(url, token, payload)
	require.NoError(t, err, "Request failed")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), "Failed to decode response: %s", body)
	return status, decoded
}

func postJSONWithError(url, token string, payload map[string]any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}
