// Package memory provides an in-memory record store. It backs local
// development, the test suites and the CLI's scratch mode.
package memory

import (
	"context"
	"sync"
	"time"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	apperrors "kbgraph/pkg/errors"
)

var (
	_ repository.Store                = (*Store)(nil)
	_ repository.TagAssociationLister = (*Store)(nil)
)

// Store keeps records in insertion order.
type Store struct {
	mu sync.RWMutex

	documents  []domain.Document
	categories []domain.Category
	tags       []domain.Tag
	docTags    map[domain.DocumentID][]domain.TagID

	// For testing error scenarios
	shouldFailOn map[string]error
	calls        map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		docTags:      make(map[domain.DocumentID][]domain.TagID),
		shouldFailOn: make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetError makes every later call to method fail with err.
func (s *Store) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn = make(map[string]error)
}

// Calls returns how many times method was invoked.
func (s *Store) Calls(method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method]
}

// enter records the call and returns the configured error. Callers hold no lock.
func (s *Store) enter(ctx context.Context, method string) error {
	s.mu.Lock()
	s.calls[method]++
	err := s.shouldFailOn[method]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Store) Close() error { return nil }

// Reads

func (s *Store) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	if err := s.enter(ctx, "ListDocuments"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Document, 0)
	for _, d := range s.documents {
		if d.UserID == userID && !d.IsDeleted() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) ListDocumentsForTag(ctx context.Context, tagID domain.TagID, userID string) ([]domain.Document, error) {
	if err := s.enter(ctx, "ListDocumentsForTag"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Document, 0)
	for _, d := range s.documents {
		if d.UserID != userID || d.IsDeleted() {
			continue
		}
		for _, t := range s.docTags[d.ID] {
			if t == tagID {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) ListDocumentsForCategory(ctx context.Context, categoryID domain.CategoryID, userID string) ([]domain.Document, error) {
	if err := s.enter(ctx, "ListDocumentsForCategory"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Document, 0)
	for _, d := range s.documents {
		if d.UserID == userID && !d.IsDeleted() && d.CategoryID != nil && *d.CategoryID == categoryID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) GetDocument(ctx context.Context, documentID domain.DocumentID) (*domain.Document, error) {
	if err := s.enter(ctx, "GetDocument"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.documents {
		if d.ID == documentID && !d.IsDeleted() {
			cp := d
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("document")
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	if err := s.enter(ctx, "ListCategories"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0)
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID domain.CategoryID) (*domain.Category, error) {
	if err := s.enter(ctx, "GetCategory"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.categoryIndex(categoryID); i >= 0 {
		cp := s.categories[i]
		return &cp, nil
	}
	return nil, apperrors.NewNotFoundError("category")
}

func (s *Store) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	if err := s.enter(ctx, "ListTags"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Tag, 0)
	for _, t := range s.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ListTagsForDocument(ctx context.Context, documentID domain.DocumentID, userID string) ([]domain.Tag, error) {
	if err := s.enter(ctx, "ListTagsForDocument"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Tag, 0)
	for _, id := range s.docTags[documentID] {
		for _, t := range s.tags {
			if t.ID == id && t.UserID == userID {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (s *Store) ListTagAssociations(ctx context.Context, userID string) ([]domain.TagAssociation, error) {
	if err := s.enter(ctx, "ListTagAssociations"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TagAssociation, 0)
	for _, d := range s.documents {
		if d.UserID != userID || d.IsDeleted() {
			continue
		}
		for _, t := range s.docTags[d.ID] {
			out = append(out, domain.TagAssociation{DocumentID: d.ID, TagID: t})
		}
	}
	return out, nil
}

// Writes

func (s *Store) UpdateCategoryParent(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) error {
	if err := s.enter(ctx, "UpdateCategoryParent"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(categoryID)
	if i < 0 || s.categories[i].UserID != userID {
		return apperrors.NewNotFoundError("category")
	}
	if parentID != nil {
		cp := *parentID
		parentID = &cp
	}
	s.categories[i].ParentID = parentID
	s.categories[i].UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) error {
	if err := s.enter(ctx, "DeleteCategory"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.categoryIndex(categoryID)
	if i < 0 || s.categories[i].UserID != userID {
		return apperrors.NewNotFoundError("category")
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return nil
}

func (s *Store) PutCategory(ctx context.Context, c domain.Category) error {
	if err := s.enter(ctx, "PutCategory"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.categoryIndex(c.ID); i >= 0 {
		s.categories[i] = c
		return nil
	}
	s.categories = append(s.categories, c)
	return nil
}

func (s *Store) PutDocument(ctx context.Context, d domain.Document) error {
	if err := s.enter(ctx, "PutDocument"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.documents {
		if s.documents[i].ID == d.ID {
			s.documents[i] = d
			return nil
		}
	}
	s.documents = append(s.documents, d)
	return nil
}

func (s *Store) PutTag(ctx context.Context, t domain.Tag) error {
	if err := s.enter(ctx, "PutTag"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tags {
		if s.tags[i].ID == t.ID {
			s.tags[i] = t
			return nil
		}
	}
	s.tags = append(s.tags, t)
	return nil
}

func (s *Store) AttachTag(ctx context.Context, userID string, documentID domain.DocumentID, tagID domain.TagID) error {
	if err := s.enter(ctx, "AttachTag"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := false
	for _, d := range s.documents {
		if d.ID == documentID && d.UserID == userID {
			owned = true
			break
		}
	}
	if !owned {
		return apperrors.NewNotFoundError("document")
	}
	for _, t := range s.docTags[documentID] {
		if t == tagID {
			return nil
		}
	}
	s.docTags[documentID] = append(s.docTags[documentID], tagID)
	return nil
}

func (s *Store) categoryIndex(id domain.CategoryID) int {
	for i, c := range s.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}
