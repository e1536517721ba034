package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	"kbgraph/internal/repository/memory"
	apperrors "kbgraph/pkg/errors"
)

func testBreakerConfig() repository.BreakerConfig {
	cfg := repository.DefaultBreakerConfig("test-store")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.PutDocument(ctx, domain.Document{ID: "d1", UserID: "alice", Title: "One"}))

	b := repository.NewBreakerStore(store, testBreakerConfig(), nil, nil)

	docs, err := b.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	assocs, err := b.ListTagAssociations(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, assocs)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerStore_CallerErrorsDoNotTrip(t *testing.T) {
	b := repository.NewBreakerStore(memory.NewStore(), testBreakerConfig(), nil, nil)

	for i := 0; i < 10; i++ {
		_, err := b.GetDocument(context.Background(), "missing")
		assert.True(t, apperrors.IsNotFound(err))
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreakerStore_TripsOnInfrastructureErrors(t *testing.T) {
	store := memory.NewStore()
	store.SetError("ListCategories", apperrors.NewDatabaseError("ListCategories", errors.New("connection reset")))

	var transitions []string
	b := repository.NewBreakerStore(store, testBreakerConfig(), func(name, from, to string) {
		transitions = append(transitions, from+"->"+to)
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.ListCategories(context.Background(), "alice")
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.State())
	assert.Equal(t, []string{"closed->open"}, transitions)

	callsBefore := store.Calls("ListCategories")
	_, err := b.ListCategories(context.Background(), "alice")
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, callsBefore, store.Calls("ListCategories"))
}

type plainStore struct{ repository.Store }

func TestBreakerStore_BulkUnsupported(t *testing.T) {
	b := repository.NewBreakerStore(plainStore{memory.NewStore()}, testBreakerConfig(), nil, nil)

	_, err := b.ListTagAssociations(context.Background(), "alice")
	assert.ErrorIs(t, err, repository.ErrBulkUnsupported)
}
