package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph/internal/domain"
	apperrors "kbgraph/pkg/errors"
)

func treeIDs(t *domain.CategoryTree) map[string]interface{} {
	children := make([]interface{}, 0, len(t.Children))
	for _, c := range t.Children {
		children = append(children, treeIDs(c))
	}
	return map[string]interface{}{string(t.Category.ID): children}
}

func TestCategoryTreeBuilder_Chain(t *testing.T) {
	categories := []domain.Category{cat("C", "B"), cat("A", ""), cat("B", "A")}

	forest, err := NewCategoryTreeBuilder(nil).Build(categories)

	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, map[string]interface{}{
		"A": []interface{}{map[string]interface{}{
			"B": []interface{}{map[string]interface{}{"C": []interface{}{}}},
		}},
	}, treeIDs(forest[0]))
}

func TestCategoryTreeBuilder_ChildrenKeepInputOrder(t *testing.T) {
	categories := []domain.Category{cat("root", ""), cat("z", "root"), cat("other", ""), cat("a", "root"), cat("m", "root")}

	forest, err := NewCategoryTreeBuilder(nil).Build(categories)

	require.NoError(t, err)
	require.Len(t, forest, 2)
	var order []domain.CategoryID
	for _, c := range forest[0].Children {
		order = append(order, c.Category.ID)
	}
	assert.Equal(t, []domain.CategoryID{"z", "a", "m"}, order)
	assert.Equal(t, domain.CategoryID("other"), forest[1].Category.ID)
}

func TestCategoryTreeBuilder_Cycles(t *testing.T) {
	tests := []struct {
		name       string
		categories []domain.Category
		wantIDs    []string
	}{
		{"self parent", []domain.Category{cat("a", ""), cat("loop", "loop")}, []string{"loop"}},
		{"two cycle", []domain.Category{cat("x", "y"), cat("y", "x")}, []string{"x", "y"}},
		{"cycle below nothing", []domain.Category{cat("r", ""), cat("p", "q"), cat("q", "s"), cat("s", "p"), cat("leaf", "p")}, []string{"p", "q", "s", "leaf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCategoryTreeBuilder(nil).Build(tt.categories)

			require.Error(t, err)
			assert.True(t, apperrors.IsCycleDetected(err))
			assert.Equal(t, tt.wantIDs, apperrors.GetAppError(err).Details["category_ids"])
		})
	}
}

func TestCategoryTreeBuilder_MissingParentBecomesRoot(t *testing.T) {
	forest, err := NewCategoryTreeBuilder(nil).Build([]domain.Category{cat("orphan", "deleted"), cat("kid", "orphan")})

	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, 2, forest[0].Size())
}

func TestCategoryTreeBuilder_ValidateMove(t *testing.T) {
	categories := []domain.Category{cat("A", ""), cat("B", "A"), cat("C", "B"), cat("D", "")}

	tests := []struct {
		name      string
		category  domain.CategoryID
		newParent *domain.CategoryID
		wantErr   func(error) bool
	}{
		{name: "to unrelated root", category: "C", newParent: domain.CategoryRef("D")},
		{name: "to root", category: "B", newParent: nil},
		{name: "up the chain", category: "C", newParent: domain.CategoryRef("A")},
		{name: "under itself", category: "A", newParent: domain.CategoryRef("A"), wantErr: apperrors.IsConflict},
		{name: "under child", category: "A", newParent: domain.CategoryRef("B"), wantErr: apperrors.IsConflict},
		{name: "under grandchild", category: "A", newParent: domain.CategoryRef("C"), wantErr: apperrors.IsConflict},
		{name: "unknown category", category: "Z", newParent: nil, wantErr: apperrors.IsNotFound},
		{name: "unknown parent", category: "A", newParent: domain.CategoryRef("Z"), wantErr: apperrors.IsNotFound},
	}

	builder := NewCategoryTreeBuilder(nil)
	before, err := builder.Build(categories)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := builder.ValidateMove(categories, tt.category, tt.newParent)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, tt.wantErr(err), "unexpected error %v", err)
		})
	}

	after, err := builder.Build(categories)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCategoryTreeBuilder_ValidateMoveOnCyclicData(t *testing.T) {
	categories := []domain.Category{cat("A", ""), cat("x", "y"), cat("y", "x")}

	err := NewCategoryTreeBuilder(nil).ValidateMove(categories, "A", domain.CategoryRef("x"))

	assert.True(t, apperrors.IsCycleDetected(err))
}

func TestCategoryTreeBuilder_Descendants(t *testing.T) {
	categories := []domain.Category{cat("A", ""), cat("B", "A"), cat("C", "B"), cat("D", "A"), cat("E", "")}

	assert.Equal(t, []domain.CategoryID{"B", "D", "C"}, NewCategoryTreeBuilder(nil).Descendants(categories, "A"))
	assert.Empty(t, NewCategoryTreeBuilder(nil).Descendants(categories, "E"))
}
