// Package category manages the category hierarchy: reading it as a forest
// and the two mutations that reshape it.
package category

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	"kbgraph/internal/domain/services"
	"kbgraph/internal/events"
	"kbgraph/internal/repository"
	"kbgraph/pkg/api"
	apperrors "kbgraph/pkg/errors"
)

// Store is the slice of the record store the service needs.
type Store interface {
	repository.CategoryReader
	repository.CategoryWriter
	ListDocumentsForCategory(ctx context.Context, categoryID domain.CategoryID, userID string) ([]domain.Document, error)
}

type Service struct {
	store     Store
	tree      *services.CategoryTreeBuilder
	publisher events.Publisher
	tracer    trace.Tracer
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(store Store, tree *services.CategoryTreeBuilder, publisher events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &Service{
		store:     store,
		tree:      tree,
		publisher: publisher,
		tracer:    otel.Tracer("kbgraph/category"),
		now:       time.Now,
		logger:    logger,
	}
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "category."+name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Tree returns the user's categories as a forest.
func (s *Service) Tree(ctx context.Context, userID string) (out []api.CategoryNode, err error) {
	ctx, end := s.span(ctx, "tree", attribute.String("user.id", userID))
	defer func() { end(err) }()
	if userID == "" {
		return nil, apperrors.NewValidationError("userId is required")
	}

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load categories")
	}
	forest, err := s.tree.Build(categories)
	if err != nil {
		return nil, err
	}
	return toForest(forest), nil
}

// owned loads a category and hides other users' categories behind FORBIDDEN.
func (s *Service) owned(ctx context.Context, userID string, id domain.CategoryID, resource string) (*domain.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError(resource)
		}
		return nil, apperrors.Wrap(err, "failed to load "+resource)
	}
	if c.UserID != userID {
		return nil, apperrors.NewForbiddenError(resource)
	}
	return c, nil
}

// MoveCategory makes parentID the parent of categoryID, or a root when
// parentID is nil. Moves that would create a cycle are rejected with
// CONFLICT and leave the hierarchy untouched.
func (s *Service) MoveCategory(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) (err error) {
	ctx, end := s.span(ctx, "move",
		attribute.String("user.id", userID),
		attribute.String("category.id", string(categoryID)))
	defer func() { end(err) }()
	if userID == "" {
		return apperrors.NewValidationError("userId is required")
	}

	current, err := s.owned(ctx, userID, categoryID, "category")
	if err != nil {
		return err
	}
	if parentID != nil {
		if *parentID == categoryID {
			return apperrors.NewConflictError("a category cannot be its own parent")
		}
		if _, err := s.owned(ctx, userID, *parentID, "parent category"); err != nil {
			return err
		}
	}
	if sameParent(current.ParentID, parentID) {
		return nil
	}

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load categories")
	}
	if err := s.tree.ValidateMove(categories, categoryID, parentID); err != nil {
		return err
	}

	if err := s.store.UpdateCategoryParent(ctx, userID, categoryID, parentID); err != nil {
		return apperrors.Wrap(err, "failed to move category")
	}
	s.logger.Info("category moved",
		zap.String("user_id", userID),
		zap.String("category_id", string(categoryID)),
		zap.String("parent_id", parentString(parentID)))

	s.publish(ctx, events.CategoryMoved(userID, categoryID, current.ParentID, parentID, s.now()))
	return nil
}

// DeleteCategory removes an empty leaf category. Categories that still have
// subcategories or documents are rejected with CONFLICT.
func (s *Service) DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) (err error) {
	ctx, end := s.span(ctx, "delete",
		attribute.String("user.id", userID),
		attribute.String("category.id", string(categoryID)))
	defer func() { end(err) }()
	if userID == "" {
		return apperrors.NewValidationError("userId is required")
	}

	if _, err := s.owned(ctx, userID, categoryID, "category"); err != nil {
		return err
	}

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load categories")
	}
	if children := s.tree.Descendants(categories, categoryID); len(children) > 0 {
		ids := make([]string, len(children))
		for i, id := range children {
			ids[i] = string(id)
		}
		return apperrors.NewConflictError("category has subcategories").
			WithDetails(map[string]interface{}{"subcategory_ids": ids})
	}

	docs, err := s.store.ListDocumentsForCategory(ctx, categoryID, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load category documents")
	}
	if len(docs) > 0 {
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = string(d.ID)
		}
		return apperrors.NewConflictError("category still has documents").
			WithDetails(map[string]interface{}{"document_ids": ids})
	}

	if err := s.store.DeleteCategory(ctx, userID, categoryID); err != nil {
		return apperrors.Wrap(err, "failed to delete category")
	}
	s.logger.Info("category deleted",
		zap.String("user_id", userID),
		zap.String("category_id", string(categoryID)))

	s.publish(ctx, events.CategoryDeleted(userID, categoryID, s.now()))
	return nil
}

// publish never fails the mutation; the change is already stored.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish category event",
			zap.String("event_type", e.Type),
			zap.String("event_id", e.ID),
			zap.Error(err))
	}
}

func sameParent(a, b *domain.CategoryID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func parentString(id *domain.CategoryID) string {
	if id == nil {
		return ""
	}
	return string(*id)
}

func toForest(forest []*domain.CategoryTree) []api.CategoryNode {
	out := make([]api.CategoryNode, len(forest))
	for i, t := range forest {
		out[i] = toNode(t)
	}
	return out
}

func toNode(t *domain.CategoryTree) api.CategoryNode {
	node := api.CategoryNode{
		ID:          string(t.Category.ID),
		Name:        t.Category.Name,
		Description: t.Category.Description,
		Children:    make([]api.CategoryNode, len(t.Children)),
	}
	if t.Category.ParentID != nil {
		parent := string(*t.Category.ParentID)
		node.ParentID = &parent
	}
	for i, c := range t.Children {
		node.Children[i] = toNode(c)
	}
	return node
}
