// Package postgres implements the record store on PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	apperrors "kbgraph/pkg/errors"
)

var (
	_ repository.Store                = (*Store)(nil)
	_ repository.TagAssociationLister = (*Store)(nil)
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL record store.
type Store struct {
	db     dbConn
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string, maxConns int32, logger *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid database url").WithCause(err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.NewUnavailableError("postgres").WithCause(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewUnavailableError("postgres").WithCause(err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, mapError("migrate", "schema", err)
	}

	s := New(pool, logger)
	s.pool = pool
	return s, nil
}

// New wraps an existing pool. The caller keeps ownership of the pool.
func New(db dbConn, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// mapError converts pgx errors into application errors.
func mapError(operation, resource string, err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.FromContext(err, operation)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(resource)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return apperrors.NewNotFoundError(resource).WithCause(err).WithCode(pgErr.Code)
		case "23505": // unique_violation
			return apperrors.NewConflictError(resource + " already exists").WithCause(err).WithCode(pgErr.Code)
		case "57014": // query_canceled
			return apperrors.NewTimeoutError(operation).WithCause(err)
		}
	}
	return apperrors.NewDatabaseError(operation, err)
}

const documentColumns = `id, user_id, title, content, category_id, created_at, updated_at, deleted_at`

func scanDocument(row pgx.Row) (domain.Document, error) {
	var (
		d          domain.Document
		categoryID *string
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.Content, &categoryID, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt); err != nil {
		return domain.Document{}, err
	}
	if categoryID != nil {
		d.CategoryID = domain.CategoryRef(domain.CategoryID(*categoryID))
	}
	return d, nil
}

func scanCategory(row pgx.Row) (domain.Category, error) {
	var (
		c        domain.Category
		parentID *string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &parentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Category{}, err
	}
	if parentID != nil {
		c.ParentID = domain.CategoryRef(domain.CategoryID(*parentID))
	}
	return c, nil
}

func scanTag(row pgx.Row) (domain.Tag, error) {
	var t domain.Tag
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt)
	return t, err
}

func collect[T any](ctx context.Context, db dbConn, scan func(pgx.Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return scan(row)
	})
}

func (s *Store) listDocuments(ctx context.Context, operation, where string, args ...any) ([]domain.Document, error) {
	docs, err := collect(ctx, s.db, scanDocument,
		`SELECT `+documentColumns+` FROM documents WHERE deleted_at IS NULL AND `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, mapError(operation, "document", err)
	}
	return docs, nil
}

func (s *Store) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	return s.listDocuments(ctx, "ListDocuments", `user_id = $1`, userID)
}

func (s *Store) ListDocumentsForCategory(ctx context.Context, categoryID domain.CategoryID, userID string) ([]domain.Document, error) {
	return s.listDocuments(ctx, "ListDocumentsForCategory", `user_id = $1 AND category_id = $2`, userID, string(categoryID))
}

func (s *Store) ListDocumentsForTag(ctx context.Context, tagID domain.TagID, userID string) ([]domain.Document, error) {
	return s.listDocuments(ctx, "ListDocumentsForTag",
		`user_id = $1 AND id IN (SELECT document_id FROM document_tags WHERE tag_id = $2)`, userID, string(tagID))
}

func (s *Store) GetDocument(ctx context.Context, documentID domain.DocumentID) (*domain.Document, error) {
	d, err := scanDocument(s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND deleted_at IS NULL`, string(documentID)))
	if err != nil {
		return nil, mapError("GetDocument", "document", err)
	}
	return &d, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	cats, err := collect(ctx, s.db, scanCategory,
		`SELECT id, user_id, name, description, parent_id, created_at, updated_at
		   FROM categories WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, mapError("ListCategories", "category", err)
	}
	return cats, nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID domain.CategoryID) (*domain.Category, error) {
	c, err := scanCategory(s.db.QueryRow(ctx,
		`SELECT id, user_id, name, description, parent_id, created_at, updated_at
		   FROM categories WHERE id = $1`, string(categoryID)))
	if err != nil {
		return nil, mapError("GetCategory", "category", err)
	}
	return &c, nil
}

func (s *Store) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	tags, err := collect(ctx, s.db, scanTag,
		`SELECT id, user_id, name, color, created_at FROM tags WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, mapError("ListTags", "tag", err)
	}
	return tags, nil
}

func (s *Store) ListTagsForDocument(ctx context.Context, documentID domain.DocumentID, userID string) ([]domain.Tag, error) {
	tags, err := collect(ctx, s.db, scanTag,
		`SELECT t.id, t.user_id, t.name, t.color, t.created_at
		   FROM tags t JOIN document_tags dt ON dt.tag_id = t.id
		  WHERE dt.document_id = $1 AND dt.user_id = $2
		  ORDER BY t.created_at, t.id`, string(documentID), userID)
	if err != nil {
		return nil, mapError("ListTagsForDocument", "tag", err)
	}
	return tags, nil
}

func (s *Store) ListTagAssociations(ctx context.Context, userID string) ([]domain.TagAssociation, error) {
	assocs, err := collect(ctx, s.db, func(row pgx.Row) (domain.TagAssociation, error) {
		var a domain.TagAssociation
		err := row.Scan(&a.DocumentID, &a.TagID)
		return a, err
	}, `SELECT dt.document_id, dt.tag_id
		   FROM document_tags dt JOIN documents d ON d.id = dt.document_id
		  WHERE dt.user_id = $1 AND d.deleted_at IS NULL
		  ORDER BY dt.document_id, dt.tag_id`, userID)
	if err != nil {
		return nil, mapError("ListTagAssociations", "tag", err)
	}
	return assocs, nil
}

func (s *Store) UpdateCategoryParent(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) error {
	var parent *string
	if parentID != nil {
		p := string(*parentID)
		parent = &p
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE categories SET parent_id = $3, updated_at = $4 WHERE id = $2 AND user_id = $1`,
		userID, string(categoryID), parent, time.Now().UTC())
	if err != nil {
		return mapError("UpdateCategoryParent", "category", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("category")
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id = $2 AND user_id = $1`, userID, string(categoryID))
	if err != nil {
		return mapError("DeleteCategory", "category", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("category")
	}
	return nil
}

func (s *Store) PutCategory(ctx context.Context, c domain.Category) error {
	var parent *string
	if c.ParentID != nil {
		p := string(*c.ParentID)
		parent = &p
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO categories (id, user_id, name, description, parent_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
		   parent_id = EXCLUDED.parent_id, updated_at = EXCLUDED.updated_at`,
		string(c.ID), c.UserID, c.Name, c.Description, parent, c.CreatedAt, c.UpdatedAt)
	return mapError("PutCategory", "category", err)
}

func (s *Store) PutDocument(ctx context.Context, d domain.Document) error {
	var categoryID *string
	if d.CategoryID != nil {
		c := string(*d.CategoryID)
		categoryID = &c
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content,
		   category_id = EXCLUDED.category_id, updated_at = EXCLUDED.updated_at, deleted_at = EXCLUDED.deleted_at`,
		string(d.ID), d.UserID, d.Title, d.Content, categoryID, d.CreatedAt, d.UpdatedAt, d.DeletedAt)
	return mapError("PutDocument", "document", err)
}

func (s *Store) PutTag(ctx context.Context, t domain.Tag) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tags (id, user_id, name, color, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color`,
		string(t.ID), t.UserID, t.Name, t.Color, t.CreatedAt)
	return mapError("PutTag", "tag", err)
}

func (s *Store) AttachTag(ctx context.Context, userID string, documentID domain.DocumentID, tagID domain.TagID) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO document_tags (user_id, document_id, tag_id)
		 SELECT $1, d.id, $3 FROM documents d WHERE d.id = $2 AND d.user_id = $1
		 ON CONFLICT DO NOTHING`,
		userID, string(documentID), string(tagID))
	if err != nil {
		return mapError("AttachTag", "document", err)
	}
	if tag.RowsAffected() == 0 {
		// Either already attached or the document is not the user's.
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1 AND user_id = $2)`,
			string(documentID), userID).Scan(&exists); err != nil {
			return mapError("AttachTag", "document", err)
		}
		if !exists {
			return apperrors.NewNotFoundError("document")
		}
	}
	return nil
}
