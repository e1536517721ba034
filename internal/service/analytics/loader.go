package analytics

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	apperrors "kbgraph/pkg/errors"
)

// DefaultLoaderConcurrency bounds per-document tag lookups.
const DefaultLoaderConcurrency = 8

// StoreRecorder counts store calls made by the loader.
type StoreRecorder interface {
	RecordStoreCall(method string, err error)
}

// SnapshotLoader reads one user's records into a domain.Snapshot.
type SnapshotLoader struct {
	store       repository.Reader
	concurrency int
	recorder    StoreRecorder
	logger      *zap.Logger
}

// NewSnapshotLoader creates a loader. recorder may be nil.
func NewSnapshotLoader(store repository.Reader, concurrency int, recorder StoreRecorder, logger *zap.Logger) *SnapshotLoader {
	if concurrency <= 0 {
		concurrency = DefaultLoaderConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotLoader{store: store, concurrency: concurrency, recorder: recorder, logger: logger}
}

func (l *SnapshotLoader) record(method string, err error) {
	if l.recorder != nil {
		l.recorder.RecordStoreCall(method, err)
	}
}

// Documents lists the user's live documents.
func (l *SnapshotLoader) Documents(ctx context.Context, userID string) ([]domain.Document, error) {
	docs, err := l.store.ListDocuments(ctx, userID)
	l.record("ListDocuments", err)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load documents")
	}
	return docs, nil
}

// Categories lists the user's categories.
func (l *SnapshotLoader) Categories(ctx context.Context, userID string) ([]domain.Category, error) {
	cats, err := l.store.ListCategories(ctx, userID)
	l.record("ListCategories", err)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load categories")
	}
	return cats, nil
}

// Load reads documents, categories, tags and tag associations. Documents,
// categories and tags are read concurrently; associations come from a bulk
// read when the store offers one and from per-document reads otherwise.
func (l *SnapshotLoader) Load(ctx context.Context, userID string) (*domain.Snapshot, error) {
	s := domain.NewSnapshot(userID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := l.Documents(gctx, userID)
		s.Documents = docs
		return err
	})
	g.Go(func() error {
		cats, err := l.Categories(gctx, userID)
		s.Categories = cats
		return err
	})
	g.Go(func() error {
		tags, err := l.store.ListTags(gctx, userID)
		l.record("ListTags", err)
		if err != nil {
			return apperrors.Wrap(err, "failed to load tags")
		}
		s.Tags = tags
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, l.contextError(ctx, err)
	}

	if err := l.loadAssociations(ctx, s); err != nil {
		return nil, l.contextError(ctx, err)
	}

	l.logger.Debug("loaded snapshot",
		zap.String("user_id", userID),
		zap.Int("documents", len(s.Documents)),
		zap.Int("categories", len(s.Categories)),
		zap.Int("tags", len(s.Tags)))
	return s, nil
}

func (l *SnapshotLoader) loadAssociations(ctx context.Context, s *domain.Snapshot) error {
	if lister, ok := l.store.(repository.TagAssociationLister); ok {
		assocs, err := lister.ListTagAssociations(ctx, s.UserID)
		switch {
		case err == nil:
			l.record("ListTagAssociations", nil)
			for _, a := range assocs {
				s.TagsByDocument[a.DocumentID] = append(s.TagsByDocument[a.DocumentID], a.TagID)
			}
			return nil
		case errors.Is(err, repository.ErrBulkUnsupported):
		default:
			l.record("ListTagAssociations", err)
			return apperrors.Wrap(err, "failed to load tag associations")
		}
	}

	perDoc := make([][]domain.TagID, len(s.Documents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, d := range s.Documents {
		g.Go(func() error {
			tags, err := l.store.ListTagsForDocument(gctx, d.ID, s.UserID)
			l.record("ListTagsForDocument", err)
			if err != nil {
				return apperrors.Wrap(err, "failed to load document tags")
			}
			ids := make([]domain.TagID, len(tags))
			for j, t := range tags {
				ids[j] = t.ID
			}
			perDoc[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, d := range s.Documents {
		if len(perDoc[i]) > 0 {
			s.TagsByDocument[d.ID] = perDoc[i]
		}
	}
	return nil
}

// contextError prefers the caller's cancellation over whatever error the
// first failing goroutine happened to return.
func (l *SnapshotLoader) contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.FromContext(ctxErr, "load snapshot")
	}
	if apperrors.IsTimeout(err) || apperrors.IsCanceled(err) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("load snapshot").WithCause(err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewCanceledError("load snapshot").WithCause(err)
	}
	return err
}
