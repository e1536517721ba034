package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeIDNamespacing(t *testing.T) {
	id := DocumentNodeID("42")

	assert.Equal(t, NodeID("document:42"), id)
	assert.Equal(t, NodeKindDocument, id.Kind())
	assert.Equal(t, "42", id.EntityID())
	assert.NotEqual(t, DocumentNodeID("7"), TagNodeID("7"))
	assert.Equal(t, "a:b", CategoryNodeID("a:b").EntityID())
}

func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name    string
		graph   Graph
		wantErr string
	}{
		{
			name: "valid",
			graph: Graph{
				Nodes: []Node{{ID: "document:1"}, {ID: "tag:a"}},
				Edges: []Edge{{Source: "document:1", Target: "tag:a", Kind: EdgeTaggedWith, Weight: 1}},
			},
		},
		{
			name: "dangling target",
			graph: Graph{
				Nodes: []Node{{ID: "document:1"}},
				Edges: []Edge{{Source: "document:1", Target: "tag:missing", Kind: EdgeTaggedWith}},
			},
			wantErr: "unknown target tag:missing",
		},
		{
			name: "dangling source",
			graph: Graph{
				Nodes: []Node{{ID: "category:1"}},
				Edges: []Edge{{Source: "category:2", Target: "category:1", Kind: EdgeSubcategoryOf}},
			},
			wantErr: "unknown source category:2",
		},
		{
			name:    "duplicate node",
			graph:   Graph{Nodes: []Node{{ID: "tag:a"}, {ID: "tag:a"}}},
			wantErr: "duplicate node tag:a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSnapshotHelpers(t *testing.T) {
	s := NewSnapshot("u1")
	s.Documents = []Document{
		{ID: "d1", CategoryID: CategoryRef("c1")},
		{ID: "d2", CategoryID: CategoryRef("c1")},
		{ID: "d3"},
	}
	s.TagsByDocument["d1"] = []TagID{"a", "b"}
	s.TagsByDocument["d2"] = []TagID{"b"}

	assert.Equal(t, 2, s.TagCount("d1"))
	assert.Equal(t, 0, s.TagCount("d3"))
	assert.Equal(t, []DocumentID{"d1", "d2"}, s.DocumentsByTag()["b"])
	assert.Equal(t, 2, s.DocumentCountByCategory()["c1"])

	_, ok := s.Document("d3")
	assert.True(t, ok)
	_, ok = s.Document("nope")
	assert.False(t, ok)
}

func TestDocumentMatches(t *testing.T) {
	d := Document{Title: "Intro to Go", Content: "Goroutines and CHANNELS"}

	assert.True(t, d.Matches("go"))
	assert.True(t, d.Matches("channels"))
	assert.False(t, d.Matches("rust"))
}

func TestCategoryTreeSize(t *testing.T) {
	tree := &CategoryTree{
		Category: Category{ID: "a"},
		Children: []*CategoryTree{{Category: Category{ID: "b"}, Children: []*CategoryTree{{Category: Category{ID: "c"}}}}},
	}
	assert.Equal(t, 3, tree.Size())
	var empty *CategoryTree
	assert.Equal(t, 0, empty.Size())
}
