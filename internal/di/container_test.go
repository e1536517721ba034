package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph/internal/config"
	"kbgraph/internal/repository"
	"kbgraph/pkg/api"
)

func testConfig() *config.Config {
	cfg := config.Defaults(config.Test)
	cfg.LogLevel = "error"
	cfg.Store.SeedFile = "testdata/seed.json"
	cfg.Events.Enabled = true
	cfg.RateLimit.Enabled = true
	return cfg
}

func TestInitializeContainer(t *testing.T) {
	c, cleanup, err := InitializeContainer(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	_, guarded := c.Store.(*repository.BreakerStore)
	assert.True(t, guarded)

	docs, err := c.Store.ListDocuments(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestInitializeContainer_ServesRequests(t *testing.T) {
	c, cleanup, err := InitializeContainer(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/graph?userId=alice", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var graph api.GraphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 6)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/categories/c2/parent?userId=alice", strings.NewReader(`{"parentId":null}`))
	c.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	c.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kbgraph_http_requests_total")
	assert.Contains(t, w.Body.String(), "kbgraph_analytics_operation_duration_seconds")
}

func TestInitializeContainer_BadSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Store.SeedFile = "testdata/missing.json"

	_, _, err := InitializeContainer(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed file")
}

func TestBreakerConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Breaker.MaxRequests = 0
	cfg.Store.Breaker.FailureThreshold = 0.5

	bc := breakerConfig(cfg)
	assert.Equal(t, "store-memory", bc.Name)
	assert.Equal(t, uint32(5), bc.MaxRequests)
	assert.Equal(t, 0.5, bc.FailureThreshold)
}

func TestProvidePublisher_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Events.Enabled = false

	p, err := ProvidePublisher(context.Background(), cfg, ProvideCollector(cfg), nil)
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background()))
}
