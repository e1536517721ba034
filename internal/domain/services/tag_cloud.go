package services

import "kbgraph/internal/domain"

// Font size range for the tag cloud.
const (
	MinTagFontSize = 12.0
	MaxTagFontSize = 36.0
)

// TagWeight is one entry of the tag cloud.
type TagWeight struct {
	ID       domain.TagID
	Name     string
	Color    string
	Weight   int
	FontSize float64
}

// BuildTagCloud weights every tag by the number of documents carrying it and
// scales the font size linearly between the lightest and heaviest tag. When
// all weights are equal every tag gets the midpoint size.
func BuildTagCloud(s *domain.Snapshot) []TagWeight {
	byTag := s.DocumentsByTag()

	cloud := make([]TagWeight, 0, len(s.Tags))
	lo, hi := -1, 0
	for _, t := range s.Tags {
		w := len(byTag[t.ID])
		if lo < 0 || w < lo {
			lo = w
		}
		if w > hi {
			hi = w
		}
		cloud = append(cloud, TagWeight{ID: t.ID, Name: t.Name, Color: t.Color, Weight: w})
	}

	for i := range cloud {
		if hi == lo {
			cloud[i].FontSize = (MinTagFontSize + MaxTagFontSize) / 2
			continue
		}
		ratio := float64(cloud[i].Weight-lo) / float64(hi-lo)
		cloud[i].FontSize = MinTagFontSize + ratio*(MaxTagFontSize-MinTagFontSize)
	}
	return cloud
}
