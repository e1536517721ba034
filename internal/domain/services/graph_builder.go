// Package services contains the pure analytics computed over a user's
// knowledge-base snapshot: graph assembly, tag-overlap similarity,
// centrality, density, clustering, coverage gaps, learning paths and the
// category hierarchy.
//
// Nothing here touches storage. Every function works on a domain.Snapshot
// loaded for the current request and returns fresh values.
package services

import (
	"go.uber.org/zap"

	"kbgraph/internal/domain"
)

// Default display weights per node kind.
const (
	CategoryNodeWeight = 30
	DocumentNodeWeight = 20
	TagNodeWeight      = 15
)

// GraphBuilder assembles the heterogeneous knowledge graph.
type GraphBuilder struct {
	logger *zap.Logger
}

// NewGraphBuilder creates a builder. A nil logger discards warnings.
func NewGraphBuilder(logger *zap.Logger) *GraphBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphBuilder{logger: logger}
}

// Build emits one node per category, document and tag (in that order), then
// belongs_to_category, tagged_with and subcategory_of edges. References to
// entities outside the snapshot are logged and skipped; Graph.Dropped counts
// them.
func (b *GraphBuilder) Build(s *domain.Snapshot) *domain.Graph {
	g := domain.NewGraph(len(s.Categories) + len(s.Documents) + len(s.Tags))

	categories := make(map[domain.CategoryID]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		categories[c.ID] = struct{}{}
		g.AddNode(domain.Node{
			ID:     domain.CategoryNodeID(c.ID),
			Label:  c.Name,
			Kind:   domain.NodeKindCategory,
			Weight: CategoryNodeWeight,
		})
	}

	documents := make(map[domain.DocumentID]struct{}, len(s.Documents))
	for _, d := range s.Documents {
		documents[d.ID] = struct{}{}
		g.AddNode(domain.Node{
			ID:     domain.DocumentNodeID(d.ID),
			Label:  d.Title,
			Kind:   domain.NodeKindDocument,
			Weight: DocumentNodeWeight,
		})
	}

	tags := make(map[domain.TagID]struct{}, len(s.Tags))
	for _, t := range s.Tags {
		tags[t.ID] = struct{}{}
		g.AddNode(domain.Node{
			ID:     domain.TagNodeID(t.ID),
			Label:  t.Name,
			Kind:   domain.NodeKindTag,
			Weight: TagNodeWeight,
		})
	}

	for _, d := range s.Documents {
		if d.CategoryID == nil {
			continue
		}
		if _, ok := categories[*d.CategoryID]; !ok {
			b.drop(g, "document references unknown category",
				zap.String("document_id", string(d.ID)),
				zap.String("category_id", string(*d.CategoryID)))
			continue
		}
		g.AddEdge(domain.Edge{
			Source: domain.DocumentNodeID(d.ID),
			Target: domain.CategoryNodeID(*d.CategoryID),
			Kind:   domain.EdgeBelongsToCategory,
			Weight: 1,
		})
	}

	for _, d := range s.Documents {
		for _, t := range s.TagsByDocument[d.ID] {
			if _, ok := tags[t]; !ok {
				b.drop(g, "document references unknown tag",
					zap.String("document_id", string(d.ID)),
					zap.String("tag_id", string(t)))
			}
		}
	}
	for id := range s.TagsByDocument {
		if _, ok := documents[id]; !ok {
			b.drop(g, "tag association references unknown document",
				zap.String("document_id", string(id)))
		}
	}

	byTag := s.DocumentsByTag()
	for _, t := range s.Tags {
		for _, docID := range byTag[t.ID] {
			g.AddEdge(domain.Edge{
				Source: domain.DocumentNodeID(docID),
				Target: domain.TagNodeID(t.ID),
				Kind:   domain.EdgeTaggedWith,
				Weight: 1,
			})
		}
	}

	for _, c := range s.Categories {
		if c.ParentID == nil {
			continue
		}
		if _, ok := categories[*c.ParentID]; !ok {
			b.drop(g, "category references unknown parent",
				zap.String("category_id", string(c.ID)),
				zap.String("parent_id", string(*c.ParentID)))
			continue
		}
		g.AddEdge(domain.Edge{
			Source: domain.CategoryNodeID(c.ID),
			Target: domain.CategoryNodeID(*c.ParentID),
			Kind:   domain.EdgeSubcategoryOf,
			Weight: 1,
		})
	}

	return g
}

func (b *GraphBuilder) drop(g *domain.Graph, msg string, fields ...zap.Field) {
	g.Dropped++
	b.logger.Warn(msg, fields...)
}
