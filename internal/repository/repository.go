// Package repository defines the record-store contract consumed by the
// analytics engine, plus the adapters that implement it.
//
// Every list operation is scoped to one user and excludes soft-deleted
// documents. Get operations look records up by id alone and return
// NOT_FOUND when nothing matches; callers compare the returned UserID to
// enforce ownership.
package repository

import (
	"context"
	"errors"

	"kbgraph/internal/domain"
)

// ErrBulkUnsupported is returned by ListTagAssociations on wrappers whose
// underlying store has no bulk association read.
var ErrBulkUnsupported = errors.New("bulk tag association reads not supported")

// DocumentReader reads documents.
type DocumentReader interface {
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)
	ListDocumentsForTag(ctx context.Context, tagID domain.TagID, userID string) ([]domain.Document, error)
	ListDocumentsForCategory(ctx context.Context, categoryID domain.CategoryID, userID string) ([]domain.Document, error)
	GetDocument(ctx context.Context, documentID domain.DocumentID) (*domain.Document, error)
}

// CategoryReader reads categories.
type CategoryReader interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	GetCategory(ctx context.Context, categoryID domain.CategoryID) (*domain.Category, error)
}

// TagReader reads tags.
type TagReader interface {
	ListTags(ctx context.Context, userID string) ([]domain.Tag, error)
	ListTagsForDocument(ctx context.Context, documentID domain.DocumentID, userID string) ([]domain.Tag, error)
}

// Reader is the full read surface of the record store.
type Reader interface {
	DocumentReader
	CategoryReader
	TagReader
}

// TagAssociationLister is implemented by stores that can return every
// document-tag link of a user in one call. The snapshot loader prefers it
// over one ListTagsForDocument call per document.
type TagAssociationLister interface {
	ListTagAssociations(ctx context.Context, userID string) ([]domain.TagAssociation, error)
}

// CategoryWriter holds the two mutations the category service performs.
type CategoryWriter interface {
	UpdateCategoryParent(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) error
	DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) error
}

// Writer loads records into a store. It backs fixtures and the import command.
type Writer interface {
	PutCategory(ctx context.Context, c domain.Category) error
	PutDocument(ctx context.Context, d domain.Document) error
	PutTag(ctx context.Context, t domain.Tag) error
	AttachTag(ctx context.Context, userID string, documentID domain.DocumentID, tagID domain.TagID) error
}

// Store is what every backend provides.
type Store interface {
	Reader
	CategoryWriter
	Writer
	Close() error
}
