package domain

import "time"

// TagID represents the unique identifier for a Tag.
type TagID string

// Tag is a free-form label attached to any number of documents.
type Tag struct {
	ID        TagID     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TagAssociation links one document to one tag.
type TagAssociation struct {
	DocumentID DocumentID `json:"document_id"`
	TagID      TagID      `json:"tag_id"`
}
