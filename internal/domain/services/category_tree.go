package services

import (
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	apperrors "kbgraph/pkg/errors"
)

// CategoryTreeBuilder assembles the category forest.
//
// Categories are held in a flat table keyed by id with a parent to children
// index, and the forest is built with an explicit stack and a visited set.
// Malformed parent links therefore surface as CYCLE_DETECTED instead of
// unbounded recursion.
type CategoryTreeBuilder struct {
	logger *zap.Logger
}

func NewCategoryTreeBuilder(logger *zap.Logger) *CategoryTreeBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryTreeBuilder{logger: logger}
}

type categoryArena struct {
	byID     map[domain.CategoryID]domain.Category
	order    []domain.CategoryID
	children map[domain.CategoryID][]domain.CategoryID
	roots    []domain.CategoryID
}

func (b *CategoryTreeBuilder) index(categories []domain.Category) *categoryArena {
	a := &categoryArena{
		byID:     make(map[domain.CategoryID]domain.Category, len(categories)),
		order:    make([]domain.CategoryID, 0, len(categories)),
		children: make(map[domain.CategoryID][]domain.CategoryID),
	}
	for _, c := range categories {
		if _, dup := a.byID[c.ID]; dup {
			b.logger.Warn("duplicate category id ignored", zap.String("category_id", string(c.ID)))
			continue
		}
		a.byID[c.ID] = c
		a.order = append(a.order, c.ID)
	}
	for _, id := range a.order {
		c := a.byID[id]
		if c.ParentID == nil {
			a.roots = append(a.roots, id)
			continue
		}
		if _, ok := a.byID[*c.ParentID]; !ok {
			b.logger.Warn("category parent not found, treating as root",
				zap.String("category_id", string(id)),
				zap.String("parent_id", string(*c.ParentID)))
			a.roots = append(a.roots, id)
			continue
		}
		a.children[*c.ParentID] = append(a.children[*c.ParentID], id)
	}
	return a
}

// Build returns one tree per root category, children in input order.
func (b *CategoryTreeBuilder) Build(categories []domain.Category) ([]*domain.CategoryTree, error) {
	a := b.index(categories)

	visited := make(map[domain.CategoryID]bool, len(a.order))
	forest := make([]*domain.CategoryTree, 0, len(a.roots))
	stack := make([]*domain.CategoryTree, 0, len(a.order))

	for _, rootID := range a.roots {
		root := &domain.CategoryTree{Category: a.byID[rootID], Children: []*domain.CategoryTree{}}
		visited[rootID] = true
		forest = append(forest, root)
		stack = append(stack, root)

		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, childID := range a.children[node.Category.ID] {
				if visited[childID] {
					return nil, apperrors.NewCycleDetectedError([]string{string(childID)})
				}
				visited[childID] = true
				child := &domain.CategoryTree{Category: a.byID[childID], Children: []*domain.CategoryTree{}}
				node.Children = append(node.Children, child)
				stack = append(stack, child)
			}
		}
	}

	if len(visited) != len(a.order) {
		var cyclic []string
		for _, id := range a.order {
			if !visited[id] {
				cyclic = append(cyclic, string(id))
			}
		}
		b.logger.Warn("category hierarchy contains a cycle", zap.Strings("category_ids", cyclic))
		return nil, apperrors.NewCycleDetectedError(cyclic)
	}
	return forest, nil
}

// ValidateMove checks that making newParentID the parent of categoryID keeps
// the hierarchy acyclic. A nil newParentID moves the category to the root.
func (b *CategoryTreeBuilder) ValidateMove(categories []domain.Category, categoryID domain.CategoryID, newParentID *domain.CategoryID) error {
	a := b.index(categories)

	if _, ok := a.byID[categoryID]; !ok {
		return apperrors.NewNotFoundError("category")
	}
	if newParentID == nil {
		return nil
	}
	if *newParentID == categoryID {
		return apperrors.NewConflictError("a category cannot be its own parent")
	}
	if _, ok := a.byID[*newParentID]; !ok {
		return apperrors.NewNotFoundError("parent category")
	}

	seen := make(map[domain.CategoryID]bool)
	for cur := newParentID; cur != nil; {
		if *cur == categoryID {
			return apperrors.NewConflictError("cannot move a category under one of its own descendants")
		}
		if seen[*cur] {
			return apperrors.NewCycleDetectedError([]string{string(*cur)})
		}
		seen[*cur] = true

		parent, ok := a.byID[*cur]
		if !ok {
			break
		}
		cur = parent.ParentID
	}
	return nil
}

// Descendants returns every category below categoryID, breadth first.
func (b *CategoryTreeBuilder) Descendants(categories []domain.Category, categoryID domain.CategoryID) []domain.CategoryID {
	a := b.index(categories)

	var out []domain.CategoryID
	seen := map[domain.CategoryID]bool{categoryID: true}
	queue := []domain.CategoryID{categoryID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range a.children[id] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}
