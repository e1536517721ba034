// Package domain holds the entities of a user's knowledge base and the
// graph structures derived from them.
package domain

import (
	"strings"
	"time"
)

// DocumentID represents the unique identifier for a Document.
type DocumentID string

// Document is a single note or article in a user's knowledge base.
type Document struct {
	ID         DocumentID  `json:"id"`
	UserID     string      `json:"user_id"`
	Title      string      `json:"title"`
	Content    string      `json:"content,omitempty"`
	CategoryID *CategoryID `json:"category_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	DeletedAt  *time.Time  `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the document has been soft-deleted.
func (d Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// Matches reports whether the title or content contains goal, ignoring case.
func (d Document) Matches(goal string) bool {
	goal = strings.ToLower(goal)
	return strings.Contains(strings.ToLower(d.Title), goal) ||
		strings.Contains(strings.ToLower(d.Content), goal)
}
