package di

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"kbgraph/internal/concurrency"
	"kbgraph/internal/config"
	"kbgraph/internal/domain/services"
	"kbgraph/internal/events"
	"kbgraph/internal/handlers"
	"kbgraph/internal/infrastructure/observability"
	"kbgraph/internal/middleware"
	"kbgraph/internal/repository"
	"kbgraph/internal/repository/badgerstore"
	"kbgraph/internal/repository/ddb"
	"kbgraph/internal/repository/memory"
	"kbgraph/internal/repository/postgres"
	"kbgraph/internal/service/analytics"
	"kbgraph/internal/service/category"
	apperrors "kbgraph/pkg/errors"
	"kbgraph/pkg/logger"
)

// ProvideLogger creates the application logger
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(string(cfg.Environment), cfg.LogLevel)
}

// ProvideCollector creates the prometheus collector. It always exists so that
// components can record unconditionally; /metrics is only mounted when enabled.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Observability.Namespace)
}

// ProvideStore opens the configured backend and wraps it in a circuit
// breaker when enabled. The cleanup closes the backend.
func ProvideStore(ctx context.Context, cfg *config.Config, collector *observability.Collector, log *zap.Logger) (repository.Store, func(), error) {
	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close record store", zap.Error(err))
		}
	}

	if !cfg.Store.Breaker.Enabled {
		return store, cleanup, nil
	}
	return repository.NewBreakerStore(store, breakerConfig(cfg), collector.SetBreakerState, log), cleanup, nil
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	sc := cfg.Store
	log.Info("opening record store", zap.String("backend", sc.Backend))

	switch sc.Backend {
	case config.BackendMemory:
		store := memory.NewStore()
		if sc.SeedFile != "" {
			if err := seed(ctx, store, sc.SeedFile, log); err != nil {
				return nil, err
			}
		}
		return store, nil

	case config.BackendDynamoDB:
		client, err := ddb.NewClient(ctx, sc.DynamoDB.Region, sc.DynamoDB.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamodb client: %w", err)
		}
		return ddb.NewStore(client, sc.DynamoDB.TableName, sc.DynamoDB.IndexName, log), nil

	case config.BackendPostgres:
		store, err := postgres.Open(ctx, sc.Postgres.URL, sc.Postgres.MaxConns, log)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendBadger:
		store, err := badgerstore.Open(badgerstore.Options{Path: sc.Badger.Path, InMemory: sc.Badger.InMemory}, log)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

func seed(ctx context.Context, w repository.Writer, path string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	ds, err := repository.ReadDataset(f)
	if err != nil {
		return err
	}
	stats, err := repository.Import(ctx, w, ds)
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	log.Info("record store seeded",
		zap.String("file", path),
		zap.Int("categories", stats.Categories),
		zap.Int("documents", stats.Documents),
		zap.Int("tags", stats.Tags),
		zap.Int("associations", stats.Associations))
	return nil
}

func breakerConfig(cfg *config.Config) repository.BreakerConfig {
	bc := repository.DefaultBreakerConfig("store-" + cfg.Store.Backend)
	b := cfg.Store.Breaker
	if b.MaxRequests > 0 {
		bc.MaxRequests = b.MaxRequests
	}
	if b.Interval > 0 {
		bc.Interval = b.Interval
	}
	if b.Timeout > 0 {
		bc.Timeout = b.Timeout
	}
	if b.FailureThreshold > 0 {
		bc.FailureThreshold = b.FailureThreshold
	}
	if b.MinRequests > 0 {
		bc.MinRequests = b.MinRequests
	}
	return bc
}

// ProvidePool creates the worker pool used by the pairwise passes.
func ProvidePool(cfg *config.Config, collector *observability.Collector, log *zap.Logger) *concurrency.Pool {
	return concurrency.NewPool(concurrency.PoolConfig{
		MaxWorkers: cfg.Analytics.MaxWorkers,
		Timeout:    cfg.Analytics.SimilarityTimeout,
	}, collector, log)
}

func ProvideSimilarityEngine(cfg *config.Config, pool *concurrency.Pool, log *zap.Logger) *services.SimilarityEngine {
	return services.NewSimilarityEngine(pool, cfg.Analytics.ParallelThreshold, log)
}

func ProvideGraphBuilder(log *zap.Logger) *services.GraphBuilder {
	return services.NewGraphBuilder(log)
}

func ProvideCategoryTreeBuilder(log *zap.Logger) *services.CategoryTreeBuilder {
	return services.NewCategoryTreeBuilder(log)
}

// ProvideSuggester creates the gap suggester. Config reloads swap its list.
func ProvideSuggester(cfg *config.Config) *services.StaticSuggester {
	return services.NewStaticSuggester(cfg.Analytics.GapSuggestions)
}

func ProvideGapAnalyzer(suggester *services.StaticSuggester) *services.GapAnalyzer {
	return services.NewGapAnalyzer(suggester)
}

func ProvideSnapshotLoader(cfg *config.Config, store repository.Store, collector *observability.Collector, log *zap.Logger) *analytics.SnapshotLoader {
	return analytics.NewSnapshotLoader(store, cfg.Store.LoaderConcurrency, collector, log)
}

func ProvideAnalyticsService(
	cfg *config.Config,
	store repository.Store,
	loader *analytics.SnapshotLoader,
	graphs *services.GraphBuilder,
	similarity *services.SimilarityEngine,
	gaps *services.GapAnalyzer,
	collector *observability.Collector,
	log *zap.Logger,
) *analytics.Service {
	return analytics.NewService(store, loader, graphs, similarity, gaps, collector,
		analytics.Config{SimilarityTimeout: cfg.Analytics.SimilarityTimeout}, log)
}

// ProvidePublisher selects the event sink and counts what goes through it.
func ProvidePublisher(ctx context.Context, cfg *config.Config, collector *observability.Collector, log *zap.Logger) (events.Publisher, error) {
	ec := cfg.Events
	if !ec.Enabled {
		return events.Discard{}, nil
	}

	var publisher events.Publisher
	switch ec.Provider {
	case "eventbridge":
		client, err := events.NewEventBridgeClient(ctx, ec.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create eventbridge client: %w", err)
		}
		publisher = events.NewEventBridgePublisher(client, ec.EventBusName, ec.Source, log)
	default:
		publisher = events.NewLogPublisher(log)
	}
	return events.WithRecorder(publisher, collector), nil
}

func ProvideCategoryService(store repository.Store, tree *services.CategoryTreeBuilder, publisher events.Publisher, log *zap.Logger) *category.Service {
	return category.NewService(store, tree, publisher, log)
}

func ProvideErrorHandler(cfg *config.Config, log *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(log, cfg.IsDevelopment())
}

// ProvideRateLimiter returns nil when rate limiting is off.
func ProvideRateLimiter(cfg *config.Config, errs *apperrors.ErrorHandler, log *zap.Logger) (*middleware.RateLimiter, func()) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil, func() {}
	}
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: rl.RequestsPerSecond,
		Burst:             rl.Burst,
		IdleTTL:           rl.IdleTTL,
	}, errs, log)
	limiter.Start()
	return limiter, limiter.Stop
}

func ProvideRouter(
	cfg *config.Config,
	analyticsSvc *analytics.Service,
	categorySvc *category.Service,
	errs *apperrors.ErrorHandler,
	limiter *middleware.RateLimiter,
	collector *observability.Collector,
	log *zap.Logger,
) http.Handler {
	defaults := handlers.DefaultQueryDefaults()
	defaults.SimilarLimit = cfg.Analytics.DefaultSimilarLimit
	defaults.CentralityLimit = cfg.Analytics.CentralityLimit

	rc := handlers.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		ServiceName:    cfg.Observability.ServiceName,
		Tracing:        cfg.Observability.TracingEnabled,
		RateLimiter:    limiter,
		Errors:         errs,
	}
	if cfg.CORS.Enabled {
		rc.CORS = &middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:         cfg.CORS.MaxAge,
		}
	}
	if cfg.Observability.MetricsEnabled {
		rc.Metrics = collector
		rc.MetricsPath = cfg.Observability.MetricsPath
		rc.MetricsHandler = collector.Handler()
	}

	return handlers.NewRouter(
		handlers.NewAnalyticsHandler(analyticsSvc, defaults, errs, log),
		handlers.NewCategoryHandler(categorySvc, errs, log),
		handlers.NewHealthHandler(string(cfg.Environment), cfg.Store.Backend),
		rc,
		log,
	)
}
