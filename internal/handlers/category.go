package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	"kbgraph/pkg/api"
	apperrors "kbgraph/pkg/errors"
)

// Categories is the category service as the HTTP layer sees it.
type Categories interface {
	Tree(ctx context.Context, userID string) ([]api.CategoryNode, error)
	MoveCategory(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) error
	DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) error
}

// maxBodyBytes caps request bodies; the only body is a move request.
const maxBodyBytes = 4 << 10

type CategoryHandler struct {
	service Categories
	errors  *apperrors.ErrorHandler
	logger  *zap.Logger
}

func NewCategoryHandler(service Categories, errs *apperrors.ErrorHandler, logger *zap.Logger) *CategoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errs == nil {
		errs = apperrors.NewErrorHandler(logger, false)
	}
	return &CategoryHandler{service: service, errors: errs, logger: logger}
}

// GetTree handles GET /api/v1/categories/tree
func (h *CategoryHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	forest, err := h.service.Tree(r.Context(), q.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, forest)
}

// MoveCategory handles PUT /api/v1/categories/{categoryId}/parent
func (h *CategoryHandler) MoveCategory(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	categoryID := chi.URLParam(r, "categoryId")

	var req api.MoveCategoryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := validateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	// A present parentId must name a category; null is the way to reach root.
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) == "" {
		h.errors.Handle(w, r, apperrors.NewValidationError("parentId must be null or a category id"))
		return
	}

	var parentID *domain.CategoryID
	if req.ParentID != nil {
		parentID = domain.CategoryRef(domain.CategoryID(*req.ParentID))
	}
	if err := h.service.MoveCategory(r.Context(), q.UserID, domain.CategoryID(categoryID), parentID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCategory handles DELETE /api/v1/categories/{categoryId}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	categoryID := chi.URLParam(r, "categoryId")
	if err := h.service.DeleteCategory(r.Context(), q.UserID, domain.CategoryID(categoryID)); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
