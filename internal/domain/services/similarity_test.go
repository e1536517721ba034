package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph/internal/concurrency"
	"kbgraph/internal/domain"
	apperrors "kbgraph/pkg/errors"
)

func newTestEngine(threshold int) *SimilarityEngine {
	pool := concurrency.NewPool(concurrency.PoolConfig{
		MaxWorkers:  4,
		Timeout:     5 * time.Second,
		Environment: concurrency.EnvironmentLocal,
	}, nil, nil)
	return NewSimilarityEngine(pool, threshold, nil)
}

func TestSimilarity_ThreeDocumentScenario(t *testing.T) {
	s := threeDocSnapshot()
	engine := newTestEngine(100)

	g, err := engine.RelationGraph(context.Background(), s)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Len(t, g.Nodes, 3)
	assert.Equal(t, []domain.Edge{
		{Source: "document:D1", Target: "document:D2", Kind: domain.EdgeSimilarTo, Weight: 1},
	}, g.Edges)

	similar, err := engine.TopSimilar(context.Background(), s, "D1", DefaultSimilarLimit)
	require.NoError(t, err)
	assert.Equal(t, []SimilarDocument{{ID: "D2", Title: "Doc D2", Score: 1}}, similar)
}

func TestSimilarity_ScoreIsSymmetric(t *testing.T) {
	s := threeDocSnapshot()
	s.TagsByDocument["D3"] = tagIDs("A", "B", "C", "B")

	for _, a := range s.Documents {
		for _, b := range s.Documents {
			assert.Equal(t,
				Score(s.TagsByDocument[a.ID], s.TagsByDocument[b.ID]),
				Score(s.TagsByDocument[b.ID], s.TagsByDocument[a.ID]),
				"%s/%s", a.ID, b.ID)
		}
	}
	assert.Equal(t, 2, Score(tagIDs("A", "B", "B"), tagIDs("B", "A")))
}

func TestSimilarity_TopSimilar(t *testing.T) {
	s := domain.NewSnapshot("user-1")
	s.Documents = []domain.Document{doc("t", "", 0), doc("a", "", 1), doc("b", "", 2), doc("c", "", 3), doc("d", "", 4)}
	s.TagsByDocument["t"] = tagIDs("x", "y", "z")
	s.TagsByDocument["a"] = tagIDs("x")
	s.TagsByDocument["b"] = tagIDs("x", "y")
	s.TagsByDocument["c"] = tagIDs("z")
	s.TagsByDocument["d"] = tagIDs("q")

	tests := []struct {
		name    string
		target  domain.DocumentID
		limit   int
		want    []domain.DocumentID
		wantErr func(error) bool
	}{
		{name: "ordered with stable ties", target: "t", limit: 5, want: []domain.DocumentID{"b", "a", "c"}},
		{name: "truncated", target: "t", limit: 2, want: []domain.DocumentID{"b", "a"}},
		{name: "zero limit", target: "t", limit: 0, want: []domain.DocumentID{}},
		{name: "no overlap", target: "d", limit: 5, want: []domain.DocumentID{}},
		{name: "negative limit", target: "t", limit: -1, wantErr: apperrors.IsValidation},
		{name: "unknown document", target: "missing", limit: 5, wantErr: apperrors.IsNotFound},
	}

	engine := newTestEngine(100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.TopSimilar(context.Background(), s, tt.target, tt.limit)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error %v", err)
				return
			}
			require.NoError(t, err)
			ids := make([]domain.DocumentID, len(got))
			for i, r := range got {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func largeSnapshot(n int) *domain.Snapshot {
	s := domain.NewSnapshot("user-1")
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("d%03d", i)
		s.Documents = append(s.Documents, doc(id, "", i))
		s.TagsByDocument[domain.DocumentID(id)] = tagIDs(fmt.Sprintf("mod3-%d", i%3), fmt.Sprintf("mod5-%d", i%5))
	}
	return s
}

func TestSimilarity_ParallelMatchesSequential(t *testing.T) {
	s := largeSnapshot(60)

	sequential, err := newTestEngine(1000).RelationGraph(context.Background(), s)
	require.NoError(t, err)
	parallel, err := newTestEngine(1).RelationGraph(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, sequential.Edges, parallel.Edges)
	require.NoError(t, parallel.Validate())
	for _, e := range parallel.Edges {
		assert.Positive(t, e.Weight)
	}
}

func TestSimilarity_Cancellation(t *testing.T) {
	s := largeSnapshot(50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, threshold := range []int{1, 1000} {
		_, err := newTestEngine(threshold).RelationGraph(ctx, s)
		require.Error(t, err)
		assert.True(t, apperrors.IsCanceled(err), "threshold %d: %v", threshold, err)
	}
}
