package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kbgraph/internal/middleware"
	apperrors "kbgraph/pkg/errors"
)

// RouterConfig selects the optional parts of the middleware chain. Nil
// fields switch the matching middleware off.
type RouterConfig struct {
	RequestTimeout time.Duration
	ServiceName    string
	Tracing        bool
	CORS           *middleware.CORSConfig
	RateLimiter    *middleware.RateLimiter
	Metrics        middleware.HTTPRecorder
	MetricsPath    string
	MetricsHandler http.Handler
	Errors         *apperrors.ErrorHandler
}

// NewRouter mounts every route on a chi router.
func NewRouter(
	analytics *AnalyticsHandler,
	categories *CategoryHandler,
	health *HealthHandler,
	cfg RouterConfig,
	logger *zap.Logger,
) http.Handler {
	errs := cfg.Errors
	if errs == nil {
		errs = apperrors.NewErrorHandler(logger, false)
	}

	r := chi.NewRouter()
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(errs, logger))
	r.Use(middleware.Logger(logger))
	if cfg.Tracing {
		r.Use(middleware.Tracing(cfg.ServiceName))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}

	r.Get("/health", health.Health)
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		r.Route("/graph", func(r chi.Router) {
			r.Get("/", analytics.GetGraph)
			r.Get("/documents", analytics.GetDocumentGraph)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/tag-cloud", analytics.GetTagCloud)
			r.Get("/central-nodes", analytics.GetCentralNodes)
			r.Get("/density", analytics.GetDensity)
			r.Get("/clusters", analytics.GetClusters)
			r.Get("/gaps", analytics.GetGaps)
			r.Get("/learning-path", analytics.GetLearningPath)
			r.Get("/trends", analytics.GetTrends)
			r.Get("/recent", analytics.GetRecent)
			r.Get("/activity", analytics.GetActivity)
		})

		r.Get("/documents/{documentId}/similar", analytics.GetSimilar)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/tree", categories.GetTree)
			r.Put("/{categoryId}/parent", categories.MoveCategory)
			r.Delete("/{categoryId}", categories.DeleteCategory)
		})
	})

	return r
}
