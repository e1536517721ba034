package services

import (
	"context"
	"sync"

	"kbgraph/internal/domain"
)

// GapSuggester proposes tags that would help fill uncovered categories.
type GapSuggester interface {
	SuggestTags(ctx context.Context, s *domain.Snapshot, uncovered []domain.Category) []string
}

// DefaultGapSuggestions is the placeholder list served until a real
// recommender is configured.
var DefaultGapSuggestions = []string{"fundamentals", "best-practices", "examples", "references"}

// StaticSuggester returns a fixed list regardless of the data. The list can
// be replaced at runtime.
type StaticSuggester struct {
	mu   sync.RWMutex
	tags []string
}

// NewStaticSuggester creates a suggester serving tags, or the defaults when
// tags is empty.
func NewStaticSuggester(tags []string) *StaticSuggester {
	s := &StaticSuggester{}
	s.SetTags(tags)
	return s
}

// SetTags replaces the suggestion list.
func (s *StaticSuggester) SetTags(tags []string) {
	if len(tags) == 0 {
		tags = DefaultGapSuggestions
	}
	cp := append([]string(nil), tags...)
	s.mu.Lock()
	s.tags = cp
	s.mu.Unlock()
}

func (s *StaticSuggester) SuggestTags(context.Context, *domain.Snapshot, []domain.Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.tags...)
}

// GapReport describes how many categories hold at least one document.
type GapReport struct {
	TotalCategories   int
	CoveredCategories int
	CoverageRate      float64
	Uncovered         []domain.Category
	SuggestedTags     []string
}

// GapAnalyzer computes category coverage.
type GapAnalyzer struct {
	suggester GapSuggester
}

func NewGapAnalyzer(suggester GapSuggester) *GapAnalyzer {
	if suggester == nil {
		suggester = NewStaticSuggester(nil)
	}
	return &GapAnalyzer{suggester: suggester}
}

// Analyze reports covered / total categories (0 with no categories) and asks
// the suggester for tags.
func (a *GapAnalyzer) Analyze(ctx context.Context, s *domain.Snapshot) GapReport {
	counts := s.DocumentCountByCategory()

	report := GapReport{
		TotalCategories: len(s.Categories),
		Uncovered:       make([]domain.Category, 0),
	}
	for _, c := range s.Categories {
		if counts[c.ID] > 0 {
			report.CoveredCategories++
		} else {
			report.Uncovered = append(report.Uncovered, c)
		}
	}
	if report.TotalCategories > 0 {
		report.CoverageRate = float64(report.CoveredCategories) / float64(report.TotalCategories)
	}

	report.SuggestedTags = a.suggester.SuggestTags(ctx, s, report.Uncovered)
	if report.SuggestedTags == nil {
		report.SuggestedTags = []string{}
	}
	return report
}
