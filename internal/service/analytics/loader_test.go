package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	apperrors "kbgraph/pkg/errors"
)

// readerOnly hides the bulk association read.
type readerOnly struct{ repository.Reader }

func TestSnapshotLoader_BulkAssociations(t *testing.T) {
	store := seedStore(t)
	loader := NewSnapshotLoader(store, 2, nil, nil)

	snap, err := loader.Load(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", snap.UserID)
	assert.Len(t, snap.Documents, 4)
	assert.Len(t, snap.Categories, 4)
	assert.Len(t, snap.Tags, 4)
	assert.Equal(t, []domain.TagID{"go", "chan"}, snap.TagsByDocument["d2"])
	assert.Equal(t, 1, store.Calls("ListTagAssociations"))
	assert.Equal(t, 0, store.Calls("ListTagsForDocument"))
}

func TestSnapshotLoader_PerDocumentFallback(t *testing.T) {
	store := seedStore(t)
	loader := NewSnapshotLoader(readerOnly{store}, 2, nil, nil)

	snap, err := loader.Load(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, 4, store.Calls("ListTagsForDocument"))
	assert.ElementsMatch(t, []domain.TagID{"go", "intro"}, snap.TagsByDocument["d1"])
	assert.ElementsMatch(t, []domain.TagID{"food"}, snap.TagsByDocument["d3"])
}

func TestSnapshotLoader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		err    error
		check  func(error) bool
	}{
		{"tags unavailable", "ListTags", apperrors.NewUnavailableError("record store"), apperrors.IsUnavailable},
		{"documents broken", "ListDocuments", apperrors.NewDatabaseError("ListDocuments", errors.New("io")), func(err error) bool {
			return apperrors.IsType(err, apperrors.ErrorTypeDatabase)
		}},
		{"associations broken", "ListTagAssociations", errors.New("disk"), apperrors.IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore(t)
			store.SetError(tt.method, tt.err)

			_, err := NewSnapshotLoader(store, 2, nil, nil).Load(context.Background(), "alice")

			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestSnapshotLoader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSnapshotLoader(seedStore(t), 2, nil, nil).Load(ctx, "alice")

	assert.True(t, apperrors.IsCanceled(err))
}

func TestSnapshotLoader_UnknownUserIsEmpty(t *testing.T) {
	snap, err := NewSnapshotLoader(seedStore(t), 2, nil, nil).Load(context.Background(), "carol")

	require.NoError(t, err)
	assert.Empty(t, snap.Documents)
	assert.Empty(t, snap.TagsByDocument)
}
