// Package badgerstore keeps the record store in an embedded BadgerDB. It
// serves the CLI's offline mode and single-node deployments.
//
// Key layout:
//
//	u:<user>:doc:<id>          document JSON
//	u:<user>:cat:<id>          category JSON
//	u:<user>:tag:<id>          tag JSON
//	u:<user>:dt:<doc>:<tag>    empty marker, one per tag association
//	id:doc:<id>                owning user id
//	id:cat:<id>                owning user id
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	apperrors "kbgraph/pkg/errors"
)

var (
	_ repository.Store                = (*Store)(nil)
	_ repository.TagAssociationLister = (*Store)(nil)
)

const (
	kindDocument = "doc"
	kindCategory = "cat"
	kindTag      = "tag"
	kindDocTag   = "dt"
)

// Options configures the store.
type Options struct {
	Path     string
	InMemory bool
	ReadOnly bool
}

// Store is a BadgerDB-backed record store.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens or creates the database.
func Open(opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bopts := badger.DefaultOptions(opts.Path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.ReadOnly {
		bopts = bopts.WithReadOnly(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening badger DB: %w", err)
	}
	logger.Info("badger store opened", zap.String("path", opts.Path), zap.Bool("in_memory", opts.InMemory))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func userKey(userID, kind string, parts ...string) []byte {
	return []byte("u:" + userID + ":" + kind + ":" + strings.Join(parts, ":"))
}

func userPrefix(userID, kind string) []byte {
	return []byte("u:" + userID + ":" + kind + ":")
}

func ownerKey(kind, id string) []byte {
	return []byte("id:" + kind + ":" + id)
}

func mapErr(operation string, err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.FromContext(err, operation)
	}
	return apperrors.NewDatabaseError(operation, err)
}

// scan decodes every value under prefix into T.
func scan[T any](ctx context.Context, txn *badger.Txn, prefix []byte) ([]T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	out := make([]T, 0)
	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func get[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

func ownerOf(txn *badger.Txn, kind, id string) (string, error) {
	item, err := txn.Get(ownerKey(kind, id))
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func put(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	return txn.Set(key, data)
}

func liveDocuments(docs []domain.Document) []domain.Document {
	out := docs[:0]
	for _, d := range docs {
		if !d.IsDeleted() {
			out = append(out, d)
		}
	}
	return out
}

// tagsByDocument lists association markers for userID. When documentID is
// set only that document's links are returned.
func tagsByDocument(ctx context.Context, txn *badger.Txn, userID string, documentID domain.DocumentID) ([]domain.TagAssociation, error) {
	prefix := userPrefix(userID, kindDocTag)
	if documentID != "" {
		prefix = userKey(userID, kindDocTag, string(documentID), "")
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	out := make([]domain.TagAssociation, 0)
	base := len(userPrefix(userID, kindDocTag))
	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rest := string(it.Item().Key()[base:])
		doc, tag, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		out = append(out, domain.TagAssociation{DocumentID: domain.DocumentID(doc), TagID: domain.TagID(tag)})
	}
	return out, nil
}

// Reads

func (s *Store) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	var out []domain.Document
	err := s.db.View(func(txn *badger.Txn) error {
		docs, err := scan[domain.Document](ctx, txn, userPrefix(userID, kindDocument))
		out = liveDocuments(docs)
		return err
	})
	return out, mapErr("ListDocuments", err)
}

func (s *Store) ListDocumentsForTag(ctx context.Context, tagID domain.TagID, userID string) ([]domain.Document, error) {
	out := make([]domain.Document, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		assocs, err := tagsByDocument(ctx, txn, userID, "")
		if err != nil {
			return err
		}
		for _, a := range assocs {
			if a.TagID != tagID {
				continue
			}
			d, err := get[domain.Document](txn, userKey(userID, kindDocument, string(a.DocumentID)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !d.IsDeleted() {
				out = append(out, *d)
			}
		}
		return nil
	})
	return out, mapErr("ListDocumentsForTag", err)
}

func (s *Store) ListDocumentsForCategory(ctx context.Context, categoryID domain.CategoryID, userID string) ([]domain.Document, error) {
	docs, err := s.ListDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Document, 0)
	for _, d := range docs {
		if d.CategoryID != nil && *d.CategoryID == categoryID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) GetDocument(ctx context.Context, documentID domain.DocumentID) (*domain.Document, error) {
	var out *domain.Document
	err := s.db.View(func(txn *badger.Txn) error {
		owner, err := ownerOf(txn, kindDocument, string(documentID))
		if err != nil {
			return err
		}
		out, err = get[domain.Document](txn, userKey(owner, kindDocument, string(documentID)))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && out.IsDeleted()) {
		return nil, apperrors.NewNotFoundError("document")
	}
	if err != nil {
		return nil, mapErr("GetDocument", err)
	}
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	var out []domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = scan[domain.Category](ctx, txn, userPrefix(userID, kindCategory))
		return err
	})
	return out, mapErr("ListCategories", err)
}

func (s *Store) GetCategory(ctx context.Context, categoryID domain.CategoryID) (*domain.Category, error) {
	var out *domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		owner, err := ownerOf(txn, kindCategory, string(categoryID))
		if err != nil {
			return err
		}
		out, err = get[domain.Category](txn, userKey(owner, kindCategory, string(categoryID)))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperrors.NewNotFoundError("category")
	}
	return out, mapErr("GetCategory", err)
}

func (s *Store) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	var out []domain.Tag
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = scan[domain.Tag](ctx, txn, userPrefix(userID, kindTag))
		return err
	})
	return out, mapErr("ListTags", err)
}

func (s *Store) ListTagsForDocument(ctx context.Context, documentID domain.DocumentID, userID string) ([]domain.Tag, error) {
	out := make([]domain.Tag, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		assocs, err := tagsByDocument(ctx, txn, userID, documentID)
		if err != nil {
			return err
		}
		for _, a := range assocs {
			t, err := get[domain.Tag](txn, userKey(userID, kindTag, string(a.TagID)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				s.logger.Warn("association references missing tag",
					zap.String("document_id", string(documentID)),
					zap.String("tag_id", string(a.TagID)))
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *t)
		}
		return nil
	})
	return out, mapErr("ListTagsForDocument", err)
}

func (s *Store) ListTagAssociations(ctx context.Context, userID string) ([]domain.TagAssociation, error) {
	var out []domain.TagAssociation
	err := s.db.View(func(txn *badger.Txn) error {
		assocs, err := tagsByDocument(ctx, txn, userID, "")
		if err != nil {
			return err
		}
		out = make([]domain.TagAssociation, 0, len(assocs))
		for _, a := range assocs {
			d, err := get[domain.Document](txn, userKey(userID, kindDocument, string(a.DocumentID)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !d.IsDeleted() {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, mapErr("ListTagAssociations", err)
}

// Writes

func (s *Store) UpdateCategoryParent(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := userKey(userID, kindCategory, string(categoryID))
		c, err := get[domain.Category](txn, key)
		if err != nil {
			return err
		}
		c.ParentID = parentID
		c.UpdatedAt = time.Now().UTC()
		return put(txn, key, c)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NewNotFoundError("category")
	}
	return mapErr("UpdateCategoryParent", err)
}

func (s *Store) DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := userKey(userID, kindCategory, string(categoryID))
		if _, err := txn.Get(key); err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(ownerKey(kindCategory, string(categoryID)))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NewNotFoundError("category")
	}
	return mapErr("DeleteCategory", err)
}

func (s *Store) PutCategory(ctx context.Context, c domain.Category) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := put(txn, userKey(c.UserID, kindCategory, string(c.ID)), c); err != nil {
			return err
		}
		return txn.Set(ownerKey(kindCategory, string(c.ID)), []byte(c.UserID))
	})
	return mapErr("PutCategory", err)
}

func (s *Store) PutDocument(ctx context.Context, d domain.Document) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := put(txn, userKey(d.UserID, kindDocument, string(d.ID)), d); err != nil {
			return err
		}
		return txn.Set(ownerKey(kindDocument, string(d.ID)), []byte(d.UserID))
	})
	return mapErr("PutDocument", err)
}

func (s *Store) PutTag(ctx context.Context, t domain.Tag) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return put(txn, userKey(t.UserID, kindTag, string(t.ID)), t)
	})
	return mapErr("PutTag", err)
}

func (s *Store) AttachTag(ctx context.Context, userID string, documentID domain.DocumentID, tagID domain.TagID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(userID, kindDocument, string(documentID))); err != nil {
			return err
		}
		return txn.Set(userKey(userID, kindDocTag, string(documentID), string(tagID)), []byte{})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NewNotFoundError("document")
	}
	return mapErr("AttachTag", err)
}
