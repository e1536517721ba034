package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the log. It is the default when no event
// bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		p.logger.Info("domain event",
			zap.String("event_id", e.ID),
			zap.String("event_type", e.Type),
			zap.String("user_id", e.UserID),
			zap.String("aggregate_id", e.AggregateID),
			zap.Any("data", e.Data))
	}
	return nil
}

// Discard drops every event. It backs deployments with events disabled.
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) error { return nil }
