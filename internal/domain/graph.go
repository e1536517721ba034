package domain

import (
	"fmt"
	"strings"
)

// NodeKind distinguishes the three entity types that appear in a graph.
type NodeKind string

const (
	NodeKindDocument NodeKind = "document"
	NodeKindCategory NodeKind = "category"
	NodeKindTag      NodeKind = "tag"
)

// EdgeKind is the relation an edge expresses.
type EdgeKind string

const (
	EdgeBelongsToCategory EdgeKind = "belongs_to_category"
	EdgeTaggedWith        EdgeKind = "tagged_with"
	EdgeSubcategoryOf     EdgeKind = "subcategory_of"
	EdgeSimilarTo         EdgeKind = "similar_to"
)

// Structural reports whether the edge comes straight from a foreign key.
func (k EdgeKind) Structural() bool {
	return k != EdgeSimilarTo
}

// NodeID is namespaced by kind, e.g. "document:42", so ids of different
// entity types never collide.
type NodeID string

func DocumentNodeID(id DocumentID) NodeID { return NodeID(string(NodeKindDocument) + ":" + string(id)) }
func CategoryNodeID(id CategoryID) NodeID { return NodeID(string(NodeKindCategory) + ":" + string(id)) }
func TagNodeID(id TagID) NodeID           { return NodeID(string(NodeKindTag) + ":" + string(id)) }

// Kind returns the namespace prefix of the id.
func (id NodeID) Kind() NodeKind {
	kind, _, _ := strings.Cut(string(id), ":")
	return NodeKind(kind)
}

// EntityID returns the id with its namespace stripped.
func (id NodeID) EntityID() string {
	_, rest, _ := strings.Cut(string(id), ":")
	return rest
}

// Node is one entity in the graph.
type Node struct {
	ID     NodeID   `json:"id"`
	Label  string   `json:"label"`
	Kind   NodeKind `json:"kind"`
	Weight float64  `json:"weight"`
}

// Edge is a typed relation between two nodes. Structural edges have weight 1,
// similarity edges carry the number of shared tags.
type Edge struct {
	Source NodeID   `json:"source"`
	Target NodeID   `json:"target"`
	Kind   EdgeKind `json:"kind"`
	Weight float64  `json:"weight"`
}

// Graph is an ordered set of nodes and edges. Nodes are inserted as
// categories, then documents, then tags.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	// Dropped counts references that pointed outside the snapshot and were skipped.
	Dropped int `json:"-"`
}

// NewGraph allocates a graph with room for the given number of nodes.
func NewGraph(nodeHint int) *Graph {
	return &Graph{
		Nodes: make([]Node, 0, nodeHint),
		Edges: make([]Edge, 0),
	}
}

// AddNode appends a node.
func (g *Graph) AddNode(n Node) {
	g.Nodes = append(g.Nodes, n)
}

// AddEdge appends an edge.
func (g *Graph) AddEdge(e Edge) {
	g.Edges = append(g.Edges, e)
}

// NodeCount returns the number of nodes of the given kind.
func (g *Graph) NodeCount(kind NodeKind) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

// EdgesOfKind returns the edges of the given kind in insertion order.
func (g *Graph) EdgesOfKind(kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks that node ids are unique and that every edge endpoint is a
// node of this graph. A failure here means the builder is broken.
func (g *Graph) Validate() error {
	seen := make(map[NodeID]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node %s", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for i, e := range g.Edges {
		if _, ok := seen[e.Source]; !ok {
			return fmt.Errorf("edge %d (%s): unknown source %s", i, e.Kind, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("edge %d (%s): unknown target %s", i, e.Kind, e.Target)
		}
	}
	return nil
}
