package domain

import "time"

// CategoryID represents the unique identifier for a Category.
type CategoryID string

// Category groups documents. Categories form a forest through ParentID.
type Category struct {
	ID          CategoryID  `json:"id"`
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	ParentID    *CategoryID `json:"parent_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryTree is one category with its direct children attached in input order.
type CategoryTree struct {
	Category Category        `json:"category"`
	Children []*CategoryTree `json:"children"`
}

// Size returns the number of categories in the subtree.
func (t *CategoryTree) Size() int {
	if t == nil {
		return 0
	}
	n := 1
	for _, c := range t.Children {
		n += c.Size()
	}
	return n
}

// CategoryRef returns a pointer to id, convenient for optional foreign keys.
func CategoryRef(id CategoryID) *CategoryID {
	return &id
}
