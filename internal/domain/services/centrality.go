package services

import (
	"sort"

	"kbgraph/internal/domain"
)

// DefaultCentralityLimit is how many documents RankCentrality returns by default.
const DefaultCentralityLimit = 10

// CentralDocument is a document with its connection count.
type CentralDocument struct {
	ID          domain.DocumentID
	Title       string
	Connections int
}

// RankCentrality orders documents by tag count, highest first, and returns
// the first limit. Untagged documents are left out entirely. Ties keep
// snapshot order.
func RankCentrality(s *domain.Snapshot, limit int) []CentralDocument {
	if limit <= 0 {
		limit = DefaultCentralityLimit
	}

	ranked := make([]CentralDocument, 0, len(s.Documents))
	for _, d := range s.Documents {
		if n := s.TagCount(d.ID); n > 0 {
			ranked = append(ranked, CentralDocument{ID: d.ID, Title: d.Title, Connections: n})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Connections > ranked[j].Connections
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
