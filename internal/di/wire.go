//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"kbgraph/internal/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideStore,
	ProvidePool,
	ProvideSimilarityEngine,
	ProvideGraphBuilder,
	ProvideCategoryTreeBuilder,
	ProvideSuggester,
	ProvideGapAnalyzer,
	ProvideSnapshotLoader,
	ProvideAnalyticsService,
	ProvidePublisher,
	ProvideCategoryService,
	ProvideErrorHandler,
	ProvideRateLimiter,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
