package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	"kbgraph/pkg/api"
	apperrors "kbgraph/pkg/errors"
)

// Analytics is the read side served under /api/v1/graph and /api/v1/analytics.
type Analytics interface {
	KnowledgeGraph(ctx context.Context, userID string) (*api.GraphResponse, error)
	DocumentGraph(ctx context.Context, userID string) (*api.GraphResponse, error)
	SimilarDocuments(ctx context.Context, userID string, documentID domain.DocumentID, limit int) ([]api.SimilarDocument, error)
	TagCloud(ctx context.Context, userID string) ([]api.TagCloudEntry, error)
	CentralNodes(ctx context.Context, userID string, limit int) ([]api.CentralNode, error)
	Density(ctx context.Context, userID string) (*api.DensityResponse, error)
	Clusters(ctx context.Context, userID string) (*api.ClustersResponse, error)
	Gaps(ctx context.Context, userID string) (*api.GapsResponse, error)
	LearningPath(ctx context.Context, userID, goal string) (*api.LearningPathResponse, error)
	Trends(ctx context.Context, userID string, months int) (*api.TrendsResponse, error)
	RecentActivity(ctx context.Context, userID string, days int) (*api.RecentActivityResponse, error)
	Activity(ctx context.Context, userID string, days int) (*api.ActivityResponse, error)
}

// Defaults for optional query parameters.
type Defaults struct {
	SimilarLimit    int
	CentralityLimit int
	TrendMonths     int
	RecentDays      int
	ActivityDays    int
}

func DefaultQueryDefaults() Defaults {
	return Defaults{
		SimilarLimit:    5,
		CentralityLimit: 10,
		TrendMonths:     6,
		RecentDays:      7,
		ActivityDays:    30,
	}
}

type AnalyticsHandler struct {
	service  Analytics
	defaults Defaults
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

func NewAnalyticsHandler(service Analytics, defaults Defaults, errs *apperrors.ErrorHandler, logger *zap.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errs == nil {
		errs = apperrors.NewErrorHandler(logger, false)
	}
	return &AnalyticsHandler{service: service, defaults: defaults, errors: errs, logger: logger}
}

// respond writes data, or the error through the shared error handler.
func (h *AnalyticsHandler) respond(w http.ResponseWriter, r *http.Request, data interface{}, err error) {
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, data)
}

// GetGraph handles GET /api/v1/graph
func (h *AnalyticsHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.KnowledgeGraph(r.Context(), q.UserID)
	h.respond(w, r, resp, err)
}

// GetDocumentGraph handles GET /api/v1/graph/documents
func (h *AnalyticsHandler) GetDocumentGraph(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.DocumentGraph(r.Context(), q.UserID)
	h.respond(w, r, resp, err)
}

// GetSimilar handles GET /api/v1/documents/{documentId}/similar
func (h *AnalyticsHandler) GetSimilar(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentId")
	if documentID == "" {
		h.errors.Handle(w, r, apperrors.NewValidationError("documentId is required"))
		return
	}
	q, err := parseLimit(r, h.defaults.SimilarLimit)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.SimilarDocuments(r.Context(), q.UserID, domain.DocumentID(documentID), q.Limit)
	h.respond(w, r, resp, err)
}

// GetTagCloud handles GET /api/v1/analytics/tag-cloud
func (h *AnalyticsHandler) GetTagCloud(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.TagCloud(r.Context(), q.UserID)
	h.respond(w, r, resp, err)
}

// GetCentralNodes handles GET /api/v1/analytics/central-nodes
func (h *AnalyticsHandler) GetCentralNodes(w http.ResponseWriter, r *http.Request) {
	q, err := parseLimit(r, h.defaults.CentralityLimit)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.CentralNodes(r.Context(), q.UserID, q.Limit)
	h.respond(w, r, resp, err)
}

// GetDensity handles GET /api/v1/analytics/density
func (h *AnalyticsHandler) GetDensity(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.Density(r.Context(), q.UserID)
	h.respond(w, r, resp, err)
}

// GetClusters handles GET /api/v1/analytics/clusters
func (h *AnalyticsHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.Clusters(r.Context(), q.UserID)
	h.respond(w, r, resp, err)
}

// GetGaps handles GET /api/v1/analytics/gaps
func (h *AnalyticsHandler) GetGaps(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.Gaps(r.Context(), q.UserID)
	h.respond(w, r, resp, err)
}

// GetLearningPath handles GET /api/v1/analytics/learning-path
func (h *AnalyticsHandler) GetLearningPath(w http.ResponseWriter, r *http.Request) {
	q, err := parseGoal(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.LearningPath(r.Context(), q.UserID, q.Goal)
	h.respond(w, r, resp, err)
}

// GetTrends handles GET /api/v1/analytics/trends
func (h *AnalyticsHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	q, err := parseMonths(r, h.defaults.TrendMonths)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.Trends(r.Context(), q.UserID, q.Months)
	h.respond(w, r, resp, err)
}

// GetRecent handles GET /api/v1/analytics/recent
func (h *AnalyticsHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	q, err := parseDays(r, h.defaults.RecentDays)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.RecentActivity(r.Context(), q.UserID, q.Days)
	h.respond(w, r, resp, err)
}

// GetActivity handles GET /api/v1/analytics/activity
func (h *AnalyticsHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	q, err := parseDays(r, h.defaults.ActivityDays)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	resp, err := h.service.Activity(r.Context(), q.UserID, q.Days)
	h.respond(w, r, resp, err)
}
