package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph/internal/domain"
)

func TestGraphBuilder_Build(t *testing.T) {
	s := domain.NewSnapshot("user-1")
	s.Categories = []domain.Category{cat("root", ""), cat("child", "root")}
	s.Documents = []domain.Document{doc("1", "child", 0), doc("2", "", 1)}
	s.Tags = []domain.Tag{tag("go"), tag("graphs")}
	s.TagsByDocument["1"] = tagIDs("go", "graphs")
	s.TagsByDocument["2"] = tagIDs("go")

	g := NewGraphBuilder(nil).Build(s)

	require.NoError(t, g.Validate())
	assert.Len(t, g.Nodes, len(s.Categories)+len(s.Documents)+len(s.Tags))
	assert.Equal(t, 0, g.Dropped)

	kinds := make([]domain.NodeKind, len(g.Nodes))
	for i, n := range g.Nodes {
		kinds[i] = n.Kind
	}
	assert.Equal(t, []domain.NodeKind{
		domain.NodeKindCategory, domain.NodeKindCategory,
		domain.NodeKindDocument, domain.NodeKindDocument,
		domain.NodeKindTag, domain.NodeKindTag,
	}, kinds)
	assert.Equal(t, float64(CategoryNodeWeight), g.Nodes[0].Weight)
	assert.Equal(t, "Doc 1", g.Nodes[2].Label)

	assert.Equal(t, []domain.Edge{
		{Source: "document:1", Target: "category:child", Kind: domain.EdgeBelongsToCategory, Weight: 1},
	}, g.EdgesOfKind(domain.EdgeBelongsToCategory))

	assert.Equal(t, []domain.Edge{
		{Source: "document:1", Target: "tag:go", Kind: domain.EdgeTaggedWith, Weight: 1},
		{Source: "document:2", Target: "tag:go", Kind: domain.EdgeTaggedWith, Weight: 1},
		{Source: "document:1", Target: "tag:graphs", Kind: domain.EdgeTaggedWith, Weight: 1},
	}, g.EdgesOfKind(domain.EdgeTaggedWith))

	assert.Equal(t, []domain.Edge{
		{Source: "category:child", Target: "category:root", Kind: domain.EdgeSubcategoryOf, Weight: 1},
	}, g.EdgesOfKind(domain.EdgeSubcategoryOf))
}

func TestGraphBuilder_SkipsDanglingReferences(t *testing.T) {
	s := domain.NewSnapshot("user-1")
	s.Categories = []domain.Category{cat("c1", "ghost-parent")}
	s.Documents = []domain.Document{doc("1", "ghost-category", 0)}
	s.Tags = []domain.Tag{tag("known")}
	s.TagsByDocument["1"] = tagIDs("known", "ghost-tag")
	s.TagsByDocument["ghost-doc"] = tagIDs("known")

	g := NewGraphBuilder(nil).Build(s)

	require.NoError(t, g.Validate())
	assert.Len(t, g.Nodes, 3)
	assert.Equal(t, 4, g.Dropped)
	assert.Len(t, g.Edges, 1)
	assert.Equal(t, domain.EdgeTaggedWith, g.Edges[0].Kind)
}

func TestGraphBuilder_NodeCountIdentity(t *testing.T) {
	tests := []struct {
		name                   string
		categories, docs, tags int
	}{
		{"empty", 0, 0, 0},
		{"documents only", 0, 5, 0},
		{"mixed", 3, 10, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.NewSnapshot("user-1")
			for i := 0; i < tt.categories; i++ {
				s.Categories = append(s.Categories, cat(string(rune('a'+i)), ""))
			}
			for i := 0; i < tt.docs; i++ {
				s.Documents = append(s.Documents, doc(string(rune('A'+i)), "", i))
			}
			for i := 0; i < tt.tags; i++ {
				s.Tags = append(s.Tags, tag(string(rune('0'+i))))
			}

			g := NewGraphBuilder(nil).Build(s)
			assert.Len(t, g.Nodes, tt.categories+tt.docs+tt.tags)
		})
	}
}
