package services

import (
	"sort"
	"strings"
	"time"

	"kbgraph/internal/domain"
	apperrors "kbgraph/pkg/errors"
)

// Path node sizing: node i is drawn at BaseStepSize + StepSizeGrowth*i.
const (
	BaseStepSize   = 10
	StepSizeGrowth = 2
)

// PathStep is one document on a learning path.
type PathStep struct {
	Document domain.Document
	Index    int
	Size     int
	Latest   bool
}

// PathLink connects consecutive steps.
type PathLink struct {
	From domain.DocumentID
	To   domain.DocumentID
}

// LearningPath is the chronological walk through a set of documents.
type LearningPath struct {
	Steps      []PathStep
	Links      []PathLink
	TotalSteps int
	StartDate  string
	LatestDate string
}

// SequenceLearningPath orders documents oldest first. Documents created at
// the same instant keep their input order.
func SequenceLearningPath(docs []domain.Document) LearningPath {
	ordered := append([]domain.Document(nil), docs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	path := LearningPath{
		Steps:      make([]PathStep, len(ordered)),
		Links:      make([]PathLink, 0, max(len(ordered)-1, 0)),
		TotalSteps: len(ordered),
	}
	for i, d := range ordered {
		path.Steps[i] = PathStep{
			Document: d,
			Index:    i,
			Size:     BaseStepSize + StepSizeGrowth*i,
			Latest:   i == len(ordered)-1,
		}
		if i > 0 {
			path.Links = append(path.Links, PathLink{From: ordered[i-1].ID, To: d.ID})
		}
	}
	if len(ordered) > 0 {
		path.StartDate = ordered[0].CreatedAt.UTC().Format(time.RFC3339)
		path.LatestDate = ordered[len(ordered)-1].CreatedAt.UTC().Format(time.RFC3339)
	}
	return path
}

// PersonalizedLearningPath keeps documents whose title or content contains
// goal, ignoring case, and sequences them.
func PersonalizedLearningPath(docs []domain.Document, goal string) (LearningPath, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return LearningPath{}, apperrors.NewValidationError("goal must not be empty")
	}

	filtered := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if d.Matches(goal) {
			filtered = append(filtered, d)
		}
	}
	return SequenceLearningPath(filtered), nil
}
