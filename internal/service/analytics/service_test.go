package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph/pkg/api"
	apperrors "kbgraph/pkg/errors"
)

func TestService_KnowledgeGraph(t *testing.T) {
	metrics := newFakeMetrics()
	svc := newTestService(seedStore(t), metrics)

	g, err := svc.KnowledgeGraph(context.Background(), "alice")

	require.NoError(t, err)
	// 4 categories + 4 documents + 4 tags
	assert.Len(t, g.Nodes, 12)
	kinds := map[string]int{}
	for _, n := range g.Nodes {
		kinds[n.Kind]++
		assert.NotEmpty(t, n.Color)
	}
	assert.Equal(t, map[string]int{"category": 4, "document": 4, "tag": 4}, kinds)

	labels := map[string]int{}
	for _, e := range g.Edges {
		labels[e.Label]++
		assert.Zero(t, e.Weight, "structural edges carry no weight")
	}
	assert.Equal(t, 3, labels["belongs_to_category"])
	assert.Equal(t, 6, labels["tagged_with"])
	assert.Equal(t, 2, labels["subcategory_of"])
	assert.Equal(t, 1, metrics.ops["graph"])
}

func TestService_DocumentGraph(t *testing.T) {
	metrics := newFakeMetrics()
	svc := newTestService(seedStore(t), metrics)

	g, err := svc.DocumentGraph(context.Background(), "alice")

	require.NoError(t, err)
	assert.Len(t, g.Nodes, 4)
	// d1-d2, d1-d4, d2-d4 share "go"
	require.Len(t, g.Edges, 3)
	assert.Equal(t, api.GraphEdge{Source: "document:d1", Target: "document:d2", Label: "similar_to", Weight: 1}, g.Edges[0])
	assert.Equal(t, 6, metrics.pairs)
}

func TestService_SimilarDocuments(t *testing.T) {
	svc := newTestService(seedStore(t), newFakeMetrics())
	ctx := context.Background()

	similar, err := svc.SimilarDocuments(ctx, "alice", "d1", 5)
	require.NoError(t, err)
	assert.Equal(t, []api.SimilarDocument{
		{ID: "d2", Title: "Channels", SimilarityScore: 1},
		{ID: "d4", Title: "Go generics", SimilarityScore: 1},
	}, similar)

	similar, err = svc.SimilarDocuments(ctx, "alice", "d1", 1)
	require.NoError(t, err)
	assert.Len(t, similar, 1)

	similar, err = svc.SimilarDocuments(ctx, "alice", "d3", 5)
	require.NoError(t, err)
	assert.Empty(t, similar)
	assert.NotNil(t, similar)
}

func TestService_SimilarDocumentsErrors(t *testing.T) {
	svc := newTestService(seedStore(t), newFakeMetrics())
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		docID  string
		limit  int
		check  func(error) bool
	}{
		{"foreign document", "alice", "b1", 5, apperrors.IsForbidden},
		{"missing document", "alice", "nope", 5, apperrors.IsNotFound},
		{"negative limit", "alice", "d1", -1, apperrors.IsValidation},
		{"missing user", "", "d1", 5, apperrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SimilarDocuments(ctx, tt.userID, domainID(tt.docID), tt.limit)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestService_SimilarDocumentsHidesForeignOwnership(t *testing.T) {
	svc := newTestService(seedStore(t), newFakeMetrics())
	ctx := context.Background()

	for _, debug := range []bool{false, true} {
		h := apperrors.NewErrorHandler(nil, debug)
		render := func(docID string) string {
			_, err := svc.SimilarDocuments(ctx, "alice", domainID(docID), 5)
			require.Error(t, err)
			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/x/similar", nil), err)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			return rec.Body.String()
		}

		missing, foreign := render("nope"), render("b1")
		assert.Equal(t, missing, foreign, "debug=%v", debug)
		assert.NotContains(t, missing, "stack_trace")
	}
}

func TestService_Reports(t *testing.T) {
	svc := newTestService(seedStore(t), newFakeMetrics())
	ctx := context.Background()

	cloud, err := svc.TagCloud(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cloud, 4)
	assert.Equal(t, "go", cloud[0].Name)
	assert.Equal(t, 3, cloud[0].Weight)
	assert.Equal(t, 36.0, cloud[0].FontSize)
	assert.Equal(t, 12.0, cloud[1].FontSize)

	central, err := svc.CentralNodes(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []api.CentralNode{
		{ID: "d1", Title: "Go basics", ConnectionCount: 2},
		{ID: "d2", Title: "Channels", ConnectionCount: 2},
	}, central)

	density, err := svc.Density(ctx, "alice")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, density.Value, 0)
	assert.LessOrEqual(t, density.Value, 100)
	assert.NotEmpty(t, density.Level)

	clusters, err := svc.Clusters(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, api.ClusterCounts{{Name: "Go", Count: 2}, {Name: "Concurrency", Count: 1}}, clusters.Clusters)
	assert.Equal(t, 2, clusters.TotalClusters)

	gaps, err := svc.Gaps(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, gaps.TotalCategories)
	assert.Equal(t, 2, gaps.CoveredCategories)
	assert.InDelta(t, 0.5, gaps.CoverageRate, 1e-9)
	assert.Equal(t, []string{"overview"}, gaps.SuggestedTags)
	assert.Len(t, gaps.UncoveredCategories, 2)
}

func TestService_LearningPath(t *testing.T) {
	svc := newTestService(seedStore(t), newFakeMetrics())
	ctx := context.Background()

	path, err := svc.LearningPath(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, 4, path.TotalSteps)
	require.Len(t, path.Nodes, 4)
	assert.Equal(t, "d1", path.Nodes[0].ID)
	assert.Equal(t, 1, path.Nodes[0].Step)
	assert.True(t, path.Nodes[3].Latest)
	assert.Equal(t, ColorLatestStep, path.Nodes[3].Color)
	assert.Equal(t, ColorDocument, path.Nodes[0].Color)
	assert.Len(t, path.Links, 3)
	assert.Equal(t, "2024-03-01T09:00:00Z", path.StartDate)

	path, err = svc.LearningPath(ctx, "alice", "go")
	require.NoError(t, err)
	assert.Equal(t, "go", path.Goal)
	assert.Equal(t, 2, path.TotalSteps)

	_, err = svc.LearningPath(ctx, "alice", "   ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_TimeWindows(t *testing.T) {
	svc := newTestService(seedStore(t), newFakeMetrics())
	ctx := context.Background()

	trends, err := svc.Trends(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []api.TrendPoint{{Month: "2024-02", Count: 0}, {Month: "2024-03", Count: 4}}, trends.Points)

	recent, err := svc.RecentActivity(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, recent.Created)
	require.Len(t, recent.Documents, 2)
	assert.Equal(t, "d4", recent.Documents[0].ID)

	activity, err := svc.Activity(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, activity.Points, 5)
	total := 0
	for _, p := range activity.Points {
		total += p.Count
	}
	assert.Equal(t, 4, total)

	_, err = svc.Trends(ctx, "alice", 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_StoreFailureIsRecorded(t *testing.T) {
	store := seedStore(t)
	store.SetError("ListDocuments", apperrors.NewUnavailableError("record store"))
	metrics := newFakeMetrics()
	svc := newTestService(store, metrics)

	_, err := svc.Density(context.Background(), "alice")

	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, 1, metrics.failed["density"])
}
