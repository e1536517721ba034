package domain

// Snapshot is a request-scoped, read-only copy of one user's knowledge base.
// It is loaded fresh for every analytics call and never retained.
type Snapshot struct {
	UserID         string
	Documents      []Document
	Categories     []Category
	Tags           []Tag
	TagsByDocument map[DocumentID][]TagID
}

// NewSnapshot returns an empty snapshot for userID.
func NewSnapshot(userID string) *Snapshot {
	return &Snapshot{
		UserID:         userID,
		TagsByDocument: make(map[DocumentID][]TagID),
	}
}

// TagCount returns the number of tags attached to a document.
func (s *Snapshot) TagCount(id DocumentID) int {
	return len(s.TagsByDocument[id])
}

// Document looks up a document by id.
func (s *Snapshot) Document(id DocumentID) (Document, bool) {
	for _, d := range s.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// DocumentsByTag inverts TagsByDocument. Documents appear in snapshot order
// under each tag.
func (s *Snapshot) DocumentsByTag() map[TagID][]DocumentID {
	out := make(map[TagID][]DocumentID)
	for _, d := range s.Documents {
		for _, t := range s.TagsByDocument[d.ID] {
			out[t] = append(out[t], d.ID)
		}
	}
	return out
}

// DocumentCountByCategory counts documents directly assigned to each category.
func (s *Snapshot) DocumentCountByCategory() map[CategoryID]int {
	out := make(map[CategoryID]int)
	for _, d := range s.Documents {
		if d.CategoryID != nil {
			out[*d.CategoryID]++
		}
	}
	return out
}
