package analytics

import (
	"time"

	"kbgraph/internal/domain"
	"kbgraph/internal/domain/services"
	"kbgraph/pkg/api"
)

// Node colors per kind.
const (
	ColorDocument = "#3b82f6"
	ColorCategory = "#10b981"
	ColorTag      = "#f59e0b"

	// ColorLatestStep marks the most recent step of a learning path.
	ColorLatestStep = "#ef4444"
)

func colorFor(kind domain.NodeKind) string {
	switch kind {
	case domain.NodeKindCategory:
		return ColorCategory
	case domain.NodeKindTag:
		return ColorTag
	default:
		return ColorDocument
	}
}

func toGraphResponse(g *domain.Graph) *api.GraphResponse {
	resp := &api.GraphResponse{
		Nodes: make([]api.GraphNode, len(g.Nodes)),
		Edges: make([]api.GraphEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		resp.Nodes[i] = api.GraphNode{
			ID:    string(n.ID),
			Label: n.Label,
			Kind:  string(n.Kind),
			Size:  n.Weight,
			Color: colorFor(n.Kind),
		}
	}
	for i, e := range g.Edges {
		edge := api.GraphEdge{Source: string(e.Source), Target: string(e.Target), Label: string(e.Kind)}
		if !e.Kind.Structural() {
			edge.Weight = int(e.Weight)
		}
		resp.Edges[i] = edge
	}
	return resp
}

func toSimilar(in []services.SimilarDocument) []api.SimilarDocument {
	out := make([]api.SimilarDocument, len(in))
	for i, d := range in {
		out[i] = api.SimilarDocument{ID: string(d.ID), Title: d.Title, SimilarityScore: d.Score}
	}
	return out
}

func toTagCloud(in []services.TagWeight) []api.TagCloudEntry {
	out := make([]api.TagCloudEntry, len(in))
	for i, t := range in {
		out[i] = api.TagCloudEntry{ID: string(t.ID), Name: t.Name, Color: t.Color, Weight: t.Weight, FontSize: t.FontSize}
	}
	return out
}

func toCentral(in []services.CentralDocument) []api.CentralNode {
	out := make([]api.CentralNode, len(in))
	for i, d := range in {
		out[i] = api.CentralNode{ID: string(d.ID), Title: d.Title, ConnectionCount: d.Connections}
	}
	return out
}

func toClusters(c services.Clusters) *api.ClustersResponse {
	counts := make(api.ClusterCounts, len(c.Entries))
	for i, e := range c.Entries {
		counts[i] = api.ClusterCount{Name: e.Name, Count: e.Count}
	}
	return &api.ClustersResponse{Clusters: counts, TotalClusters: c.Total()}
}

func toGaps(r services.GapReport) *api.GapsResponse {
	uncovered := make([]api.CategorySummary, len(r.Uncovered))
	for i, c := range r.Uncovered {
		uncovered[i] = api.CategorySummary{ID: string(c.ID), Name: c.Name}
	}
	return &api.GapsResponse{
		TotalCategories:     r.TotalCategories,
		CoveredCategories:   r.CoveredCategories,
		CoverageRate:        r.CoverageRate,
		UncoveredCategories: uncovered,
		SuggestedTags:       r.SuggestedTags,
	}
}

func toLearningPath(p services.LearningPath) *api.LearningPathResponse {
	out := &api.LearningPathResponse{
		Nodes:      make([]api.PathNode, len(p.Steps)),
		Links:      make([]api.PathLink, len(p.Links)),
		TotalSteps: p.TotalSteps,
		StartDate:  p.StartDate,
		LatestDate: p.LatestDate,
	}
	for i, step := range p.Steps {
		out.Nodes[i] = api.PathNode{
			ID:        string(step.Document.ID),
			Title:     step.Document.Title,
			Step:      step.Index + 1,
			Size:      step.Size,
			CreatedAt: formatTime(step.Document.CreatedAt),
			Latest:    step.Latest,
			Color:     ColorDocument,
		}
		if step.Latest {
			out.Nodes[i].Color = ColorLatestStep
		}
	}
	for i, l := range p.Links {
		out.Links[i] = api.PathLink{Source: string(l.From), Target: string(l.To)}
	}
	return out
}

func toRecent(r services.RecentActivity, days int) *api.RecentActivityResponse {
	out := &api.RecentActivityResponse{
		Days:      days,
		Documents: make([]api.ActivityDocument, len(r.Documents)),
		Created:   r.Created,
		Updated:   r.Updated,
	}
	for i, d := range r.Documents {
		out.Documents[i] = api.ActivityDocument{
			ID:        string(d.ID),
			Title:     d.Title,
			CreatedAt: formatTime(d.CreatedAt),
			UpdatedAt: formatTime(d.UpdatedAt),
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
