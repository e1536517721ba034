package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	apperrors "kbgraph/pkg/errors"
)

// BreakerConfig configures the circuit breaker placed in front of a store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the settings used when none are configured.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// StateListener is told about every breaker state transition.
type StateListener func(name, from, to string)

// BreakerStore guards a Store with a circuit breaker. Only infrastructure
// failures count against the breaker; NOT_FOUND, validation and other
// caller errors pass through without tripping it.
type BreakerStore struct {
	next   Store
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var (
	_ Store                = (*BreakerStore)(nil)
	_ TagAssociationLister = (*BreakerStore)(nil)
)

// NewBreakerStore wraps next. listener may be nil.
func NewBreakerStore(next Store, cfg BreakerConfig, listener StateListener, logger *zap.Logger) *BreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if listener != nil {
				listener(name, from.String(), to.String())
			}
		},
		IsSuccessful: isBreakerSuccess,
	}
	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

// State reports the current breaker state.
func (b *BreakerStore) State() string { return b.cb.State().String() }

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case apperrors.ErrorTypeDatabase, apperrors.ErrorTypeUnavailable, apperrors.ErrorTypeTimeout, apperrors.ErrorTypeInternal:
		return false
	}
	return true
}

func call[T any](b *BreakerStore, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperrors.NewUnavailableError("record store").WithCause(err)
		}
		return zero, err
	}
	return res.(T), nil
}

func exec(b *BreakerStore, fn func() error) error {
	_, err := call(b, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *BreakerStore) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	return call(b, func() ([]domain.Document, error) { return b.next.ListDocuments(ctx, userID) })
}

func (b *BreakerStore) ListDocumentsForTag(ctx context.Context, tagID domain.TagID, userID string) ([]domain.Document, error) {
	return call(b, func() ([]domain.Document, error) { return b.next.ListDocumentsForTag(ctx, tagID, userID) })
}

func (b *BreakerStore) ListDocumentsForCategory(ctx context.Context, categoryID domain.CategoryID, userID string) ([]domain.Document, error) {
	return call(b, func() ([]domain.Document, error) { return b.next.ListDocumentsForCategory(ctx, categoryID, userID) })
}

func (b *BreakerStore) GetDocument(ctx context.Context, documentID domain.DocumentID) (*domain.Document, error) {
	return call(b, func() (*domain.Document, error) { return b.next.GetDocument(ctx, documentID) })
}

func (b *BreakerStore) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	return call(b, func() ([]domain.Category, error) { return b.next.ListCategories(ctx, userID) })
}

func (b *BreakerStore) GetCategory(ctx context.Context, categoryID domain.CategoryID) (*domain.Category, error) {
	return call(b, func() (*domain.Category, error) { return b.next.GetCategory(ctx, categoryID) })
}

func (b *BreakerStore) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	return call(b, func() ([]domain.Tag, error) { return b.next.ListTags(ctx, userID) })
}

func (b *BreakerStore) ListTagsForDocument(ctx context.Context, documentID domain.DocumentID, userID string) ([]domain.Tag, error) {
	return call(b, func() ([]domain.Tag, error) { return b.next.ListTagsForDocument(ctx, documentID, userID) })
}

// ListTagAssociations delegates when the wrapped store supports bulk
// association reads and reports UNAVAILABLE otherwise, so callers fall
// back to per-document reads.
func (b *BreakerStore) ListTagAssociations(ctx context.Context, userID string) ([]domain.TagAssociation, error) {
	lister, ok := b.next.(TagAssociationLister)
	if !ok {
		return nil, ErrBulkUnsupported
	}
	return call(b, func() ([]domain.TagAssociation, error) { return lister.ListTagAssociations(ctx, userID) })
}

func (b *BreakerStore) UpdateCategoryParent(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) error {
	return exec(b, func() error { return b.next.UpdateCategoryParent(ctx, userID, categoryID, parentID) })
}

func (b *BreakerStore) DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) error {
	return exec(b, func() error { return b.next.DeleteCategory(ctx, userID, categoryID) })
}

func (b *BreakerStore) PutCategory(ctx context.Context, c domain.Category) error {
	return exec(b, func() error { return b.next.PutCategory(ctx, c) })
}

func (b *BreakerStore) PutDocument(ctx context.Context, d domain.Document) error {
	return exec(b, func() error { return b.next.PutDocument(ctx, d) })
}

func (b *BreakerStore) PutTag(ctx context.Context, t domain.Tag) error {
	return exec(b, func() error { return b.next.PutTag(ctx, t) })
}

func (b *BreakerStore) AttachTag(ctx context.Context, userID string, documentID domain.DocumentID, tagID domain.TagID) error {
	return exec(b, func() error { return b.next.AttachTag(ctx, userID, documentID, tagID) })
}

func (b *BreakerStore) Close() error { return b.next.Close() }
