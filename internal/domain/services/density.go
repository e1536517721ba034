package services

import "kbgraph/internal/domain"

// DensityLevel is a coarse label for a density score.
type DensityLevel string

const (
	DensityHigh   DensityLevel = "high"
	DensityMedium DensityLevel = "medium"
	DensityLow    DensityLevel = "low"
)

// Density summarises how connected a corpus is on a 0..100 scale.
type Density struct {
	Value               int
	Level               DensityLevel
	ActualConnections   int64
	PossibleConnections int64
}

// AnalyzeDensity divides the total number of tag attachments by the number of
// possible document pairs n(n-1)/2. The numerator measures tag richness rather
// than pairwise overlap; the result is floored and capped at 100.
func AnalyzeDensity(s *domain.Snapshot) Density {
	n := int64(len(s.Documents))

	var actual int64
	for _, d := range s.Documents {
		actual += int64(s.TagCount(d.ID))
	}

	out := Density{ActualConnections: actual}
	if n > 1 {
		out.PossibleConnections = n * (n - 1) / 2
		out.Value = int(min(actual*100/out.PossibleConnections, 100))
	}
	out.Level = LevelFor(out.Value)
	return out
}

// LevelFor maps a density value to its label.
func LevelFor(value int) DensityLevel {
	switch {
	case value >= 70:
		return DensityHigh
	case value >= 40:
		return DensityMedium
	default:
		return DensityLow
	}
}
