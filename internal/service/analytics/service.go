// Package analytics serves the read-side analytics of a user's knowledge
// base. Every call loads a fresh snapshot, runs one computation from
// domain/services over it and maps the result into pkg/api view models.
package analytics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	"kbgraph/internal/domain/services"
	"kbgraph/internal/repository"
	"kbgraph/pkg/api"
	apperrors "kbgraph/pkg/errors"
)

// Metrics receives operation timings and analytics counters.
type Metrics interface {
	RecordAnalytics(operation string, duration time.Duration, err error)
	AddSimilarityPairs(n int)
	AddDroppedReferences(n int)
}

// Config tunes the service.
type Config struct {
	// SimilarityTimeout bounds the pairwise passes.
	SimilarityTimeout time.Duration
}

// Service is the analytics application service.
type Service struct {
	store      repository.DocumentReader
	loader     *SnapshotLoader
	graphs     *services.GraphBuilder
	similarity *services.SimilarityEngine
	gaps       *services.GapAnalyzer
	metrics    Metrics
	tracer     trace.Tracer
	cfg        Config
	now        func() time.Time
	logger     *zap.Logger
}

// NewService wires the service. metrics may be nil.
func NewService(
	store repository.DocumentReader,
	loader *SnapshotLoader,
	graphs *services.GraphBuilder,
	similarity *services.SimilarityEngine,
	gaps *services.GapAnalyzer,
	metrics Metrics,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SimilarityTimeout <= 0 {
		cfg.SimilarityTimeout = 10 * time.Second
	}
	return &Service{
		store:      store,
		loader:     loader,
		graphs:     graphs,
		similarity: similarity,
		gaps:       gaps,
		metrics:    metrics,
		tracer:     otel.Tracer("kbgraph/analytics"),
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source used by the time-windowed reports.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// observe opens a span for operation and returns the func that ends it.
func (s *Service) observe(ctx context.Context, operation, userID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analytics."+operation,
		trace.WithAttributes(attribute.String("user.id", userID)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if !apperrors.IsNotFound(err) && !apperrors.IsForbidden(err) && !apperrors.IsValidation(err) {
				s.logger.Warn("analytics operation failed",
					zap.String("operation", operation),
					zap.String("user_id", userID),
					zap.Error(err))
			}
		}
		span.End()
		if s.metrics != nil {
			s.metrics.RecordAnalytics(operation, time.Since(start), err)
		}
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return apperrors.NewValidationError("userId is required")
	}
	return nil
}

// KnowledgeGraph returns the category/document/tag graph.
func (s *Service) KnowledgeGraph(ctx context.Context, userID string) (resp *api.GraphResponse, err error) {
	ctx, done := s.observe(ctx, "graph", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	g := s.graphs.Build(snap)
	if s.metrics != nil {
		s.metrics.AddDroppedReferences(g.Dropped)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("graph.nodes", len(g.Nodes)),
		attribute.Int("graph.edges", len(g.Edges)))
	return toGraphResponse(g), nil
}

// DocumentGraph returns documents joined by shared-tag edges.
func (s *Service) DocumentGraph(ctx context.Context, userID string) (resp *api.GraphResponse, err error) {
	ctx, done := s.observe(ctx, "document_graph", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SimilarityTimeout)
	defer cancel()

	g, err := s.similarity.RelationGraph(ctx, snap)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		n := len(snap.Documents)
		s.metrics.AddSimilarityPairs(n * (n - 1) / 2)
	}
	return toGraphResponse(g), nil
}

// SimilarDocuments ranks the user's other documents by shared tags with
// documentID. A document owned by someone else is reported as not found.
func (s *Service) SimilarDocuments(ctx context.Context, userID string, documentID domain.DocumentID, limit int) (resp []api.SimilarDocument, err error) {
	ctx, done := s.observe(ctx, "similar", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative")
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("document")
		}
		return nil, apperrors.Wrap(err, "failed to load document")
	}
	if doc.UserID != userID {
		return nil, apperrors.NewForbiddenError("document")
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SimilarityTimeout)
	defer cancel()

	similar, err := s.similarity.TopSimilar(ctx, snap, documentID, limit)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AddSimilarityPairs(max(len(snap.Documents)-1, 0))
	}
	return toSimilar(similar), nil
}

// TagCloud weights every tag by usage.
func (s *Service) TagCloud(ctx context.Context, userID string) (resp []api.TagCloudEntry, err error) {
	ctx, done := s.observe(ctx, "tag_cloud", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toTagCloud(services.BuildTagCloud(snap)), nil
}

// CentralNodes returns the most-tagged documents.
func (s *Service) CentralNodes(ctx context.Context, userID string, limit int) (resp []api.CentralNode, err error) {
	ctx, done := s.observe(ctx, "central_nodes", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toCentral(services.RankCentrality(snap, limit)), nil
}

// Density reports how densely documents are tagged.
func (s *Service) Density(ctx context.Context, userID string) (resp *api.DensityResponse, err error) {
	ctx, done := s.observe(ctx, "density", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := services.AnalyzeDensity(snap)
	return &api.DensityResponse{Value: d.Value, Level: string(d.Level)}, nil
}

// Clusters counts documents per category.
func (s *Service) Clusters(ctx context.Context, userID string) (resp *api.ClustersResponse, err error) {
	ctx, done := s.observe(ctx, "clusters", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toClusters(services.AnalyzeClusters(snap)), nil
}

// Gaps reports category coverage and suggested tags.
func (s *Service) Gaps(ctx context.Context, userID string) (resp *api.GapsResponse, err error) {
	ctx, done := s.observe(ctx, "gaps", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	snap, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toGaps(s.gaps.Analyze(ctx, snap)), nil
}

// LearningPath orders the user's documents chronologically. A non-blank
// goal restricts the path to documents mentioning it.
func (s *Service) LearningPath(ctx context.Context, userID, goal string) (resp *api.LearningPathResponse, err error) {
	ctx, done := s.observe(ctx, "learning_path", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	docs, err := s.loader.Documents(ctx, userID)
	if err != nil {
		return nil, err
	}
	var path services.LearningPath
	if goal == "" {
		path = services.SequenceLearningPath(docs)
	} else if path, err = services.PersonalizedLearningPath(docs, goal); err != nil {
		return nil, err
	}
	out := toLearningPath(path)
	out.Goal = goal
	return out, nil
}

// Trends counts documents created per month over the last months months.
func (s *Service) Trends(ctx context.Context, userID string, months int) (resp *api.TrendsResponse, err error) {
	ctx, done := s.observe(ctx, "trends", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	docs, err := s.loader.Documents(ctx, userID)
	if err != nil {
		return nil, err
	}
	points, err := services.DocumentTrend(docs, months, s.now())
	if err != nil {
		return nil, err
	}
	out := &api.TrendsResponse{Months: months, Points: make([]api.TrendPoint, len(points))}
	for i, p := range points {
		out.Points[i] = api.TrendPoint{Month: p.Period, Count: p.Count}
	}
	return out, nil
}

// RecentActivity lists documents touched in the last days days.
func (s *Service) RecentActivity(ctx context.Context, userID string, days int) (resp *api.RecentActivityResponse, err error) {
	ctx, done := s.observe(ctx, "recent", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	docs, err := s.loader.Documents(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := services.CollectRecentActivity(docs, days, s.now())
	if err != nil {
		return nil, err
	}
	return toRecent(recent, days), nil
}

// Activity counts documents created per day over the last days days.
func (s *Service) Activity(ctx context.Context, userID string, days int) (resp *api.ActivityResponse, err error) {
	ctx, done := s.observe(ctx, "activity", userID)
	defer func() { done(err) }()
	if err = requireUser(userID); err != nil {
		return nil, err
	}

	docs, err := s.loader.Documents(ctx, userID)
	if err != nil {
		return nil, err
	}
	points, err := services.ActivityHeatmap(docs, days, s.now())
	if err != nil {
		return nil, err
	}
	out := &api.ActivityResponse{Days: days, Points: make([]api.ActivityPoint, len(points))}
	for i, p := range points {
		out.Points[i] = api.ActivityPoint{Date: p.Period, Count: p.Count}
	}
	return out, nil
}
