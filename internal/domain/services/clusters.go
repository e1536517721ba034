package services

import "kbgraph/internal/domain"

// ClusterCount is the number of documents filed directly under a category name.
type ClusterCount struct {
	Name  string
	Count int
}

// Clusters is an ordered name to document-count mapping.
type Clusters struct {
	Entries []ClusterCount
}

// Total returns the number of clusters.
func (c Clusters) Total() int {
	return len(c.Entries)
}

// Get returns the count for name.
func (c Clusters) Get(name string) (int, bool) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e.Count, true
		}
	}
	return 0, false
}

// AnalyzeClusters counts direct documents per category in snapshot order and
// drops empty categories. Categories sharing a name are merged into the first
// occurrence.
func AnalyzeClusters(s *domain.Snapshot) Clusters {
	counts := s.DocumentCountByCategory()

	out := Clusters{Entries: make([]ClusterCount, 0)}
	index := make(map[string]int)
	for _, c := range s.Categories {
		n := counts[c.ID]
		if n == 0 {
			continue
		}
		if i, ok := index[c.Name]; ok {
			out.Entries[i].Count += n
			continue
		}
		index[c.Name] = len(out.Entries)
		out.Entries = append(out.Entries, ClusterCount{Name: c.Name, Count: n})
	}
	return out
}
