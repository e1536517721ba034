package services

import (
	"time"

	"kbgraph/internal/domain"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func doc(id string, category string, createdDay int) domain.Document {
	d := domain.Document{
		ID:        domain.DocumentID(id),
		UserID:    "user-1",
		Title:     "Doc " + id,
		CreatedAt: baseTime.AddDate(0, 0, createdDay),
		UpdatedAt: baseTime.AddDate(0, 0, createdDay),
	}
	if category != "" {
		d.CategoryID = domain.CategoryRef(domain.CategoryID(category))
	}
	return d
}

func cat(id, parent string) domain.Category {
	c := domain.Category{ID: domain.CategoryID(id), UserID: "user-1", Name: "Category " + id}
	if parent != "" {
		c.ParentID = domain.CategoryRef(domain.CategoryID(parent))
	}
	return c
}

func tag(id string) domain.Tag {
	return domain.Tag{ID: domain.TagID(id), UserID: "user-1", Name: id}
}

func tagIDs(ids ...string) []domain.TagID {
	out := make([]domain.TagID, len(ids))
	for i, id := range ids {
		out[i] = domain.TagID(id)
	}
	return out
}

// threeDocSnapshot is D1{A,B}, D2{B,C}, D3{D}.
func threeDocSnapshot() *domain.Snapshot {
	s := domain.NewSnapshot("user-1")
	s.Documents = []domain.Document{doc("D1", "", 0), doc("D2", "", 1), doc("D3", "", 2)}
	s.Tags = []domain.Tag{tag("A"), tag("B"), tag("C"), tag("D")}
	s.TagsByDocument["D1"] = tagIDs("A", "B")
	s.TagsByDocument["D2"] = tagIDs("B", "C")
	s.TagsByDocument["D3"] = tagIDs("D")
	return s
}
