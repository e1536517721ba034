// Package di assembles the application from configuration.
package di

import (
	"net/http"

	"go.uber.org/zap"

	"kbgraph/internal/config"
	"kbgraph/internal/domain/services"
	"kbgraph/internal/infrastructure/observability"
	"kbgraph/internal/repository"
	"kbgraph/internal/service/analytics"
	"kbgraph/internal/service/category"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Collector  *observability.Collector
	Store      repository.Store
	Suggester  *services.StaticSuggester
	Analytics  *analytics.Service
	Categories *category.Service
	Router     http.Handler
}

// Watch applies reloadable settings from w to the running container.
func (c *Container) Watch(w *config.Watcher) {
	w.Subscribe(func(cfg *config.Config) {
		c.Suggester.SetTags(cfg.Analytics.GapSuggestions)
		c.Logger.Info("gap suggestions reloaded", zap.Strings("tags", cfg.Analytics.GapSuggestions))
	})
}
