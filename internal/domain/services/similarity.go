package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"kbgraph/internal/concurrency"
	"kbgraph/internal/domain"
	apperrors "kbgraph/pkg/errors"
)

// DefaultSimilarLimit is the number of similar documents returned when the
// caller does not ask for a specific count.
const DefaultSimilarLimit = 5

// SimilarDocument is one result of a top-K similarity query.
type SimilarDocument struct {
	ID    domain.DocumentID
	Title string
	Score int
}

// SimilarityEngine scores documents by the number of tags they share.
//
// The document-relation graph compares every pair of documents, so its cost
// grows with n²·t for n documents of t tags each. That is fine for personal
// corpora of a few thousand documents; larger inputs hit the pool timeout.
type SimilarityEngine struct {
	pool              *concurrency.Pool
	parallelThreshold int
	logger            *zap.Logger
}

// NewSimilarityEngine creates an engine. Corpora with fewer than
// parallelThreshold documents are scored on the calling goroutine.
func NewSimilarityEngine(pool *concurrency.Pool, parallelThreshold int, logger *zap.Logger) *SimilarityEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimilarityEngine{
		pool:              pool,
		parallelThreshold: parallelThreshold,
		logger:            logger,
	}
}

type tagSet map[domain.TagID]struct{}

func newTagSet(ids []domain.TagID) tagSet {
	set := make(tagSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (a tagSet) intersect(b tagSet) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for id := range a {
		if _, ok := b[id]; ok {
			n++
		}
	}
	return n
}

// Score returns the number of distinct tag ids present in both lists.
func Score(a, b []domain.TagID) int {
	return newTagSet(a).intersect(newTagSet(b))
}

// RelationGraph returns a graph of document nodes joined by similar_to edges
// for every unordered pair sharing at least one tag. Edges are ordered by the
// first document's position, then the second's.
func (e *SimilarityEngine) RelationGraph(ctx context.Context, s *domain.Snapshot) (*domain.Graph, error) {
	n := len(s.Documents)
	g := domain.NewGraph(n)
	for _, d := range s.Documents {
		g.AddNode(domain.Node{
			ID:     domain.DocumentNodeID(d.ID),
			Label:  d.Title,
			Kind:   domain.NodeKindDocument,
			Weight: DocumentNodeWeight,
		})
	}

	sets := make([]tagSet, n)
	for i, d := range s.Documents {
		sets[i] = newTagSet(s.TagsByDocument[d.ID])
	}

	rows := make([][]domain.Edge, n)
	scoreRow := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(sets[i]) == 0 {
			return nil
		}
		var row []domain.Edge
		for j := i + 1; j < n; j++ {
			if shared := sets[i].intersect(sets[j]); shared > 0 {
				row = append(row, domain.Edge{
					Source: domain.DocumentNodeID(s.Documents[i].ID),
					Target: domain.DocumentNodeID(s.Documents[j].ID),
					Kind:   domain.EdgeSimilarTo,
					Weight: float64(shared),
				})
			}
		}
		rows[i] = row
		return nil
	}

	if e.pool == nil || n < e.parallelThreshold {
		for i := 0; i < n; i++ {
			if err := scoreRow(ctx, i); err != nil {
				return nil, apperrors.FromContext(err, "document relation graph")
			}
		}
	} else if err := e.pool.Run(ctx, "document relation graph", n, scoreRow); err != nil {
		return nil, err
	}

	for _, row := range rows {
		g.Edges = append(g.Edges, row...)
	}
	e.logger.Debug("built document relation graph",
		zap.String("user_id", s.UserID),
		zap.Int("documents", n),
		zap.Int("edges", len(g.Edges)),
	)
	return g, nil
}

// TopSimilar ranks every other document in the snapshot by tag overlap with
// documentID and returns at most limit entries with a positive score. Ties
// keep snapshot order. A document that shares no tags yields an empty slice.
func (e *SimilarityEngine) TopSimilar(ctx context.Context, s *domain.Snapshot, documentID domain.DocumentID, limit int) ([]SimilarDocument, error) {
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative")
	}
	if _, ok := s.Document(documentID); !ok {
		return nil, apperrors.NewNotFoundError("document")
	}

	target := newTagSet(s.TagsByDocument[documentID])
	results := make([]SimilarDocument, 0)
	if limit == 0 || len(target) == 0 {
		return results, nil
	}

	for i, d := range s.Documents {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, apperrors.FromContext(err, "similar documents")
			}
		}
		if d.ID == documentID {
			continue
		}
		if score := target.intersect(newTagSet(s.TagsByDocument[d.ID])); score > 0 {
			results = append(results, SimilarDocument{ID: d.ID, Title: d.Title, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
