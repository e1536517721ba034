// Package events publishes category domain events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kbgraph/internal/domain"
)

const (
	TypeCategoryMoved   = "category.moved"
	TypeCategoryDeleted = "category.deleted"
)

// Event is a domain event as it goes on the wire.
type Event struct {
	ID          string            `json:"eventId"`
	Type        string            `json:"eventType"`
	UserID      string            `json:"userId"`
	AggregateID string            `json:"aggregateId"`
	OccurredAt  time.Time         `json:"occurredAt"`
	Data        map[string]string `json:"data,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Recorder counts published events by outcome.
type Recorder interface {
	RecordEvent(event string, err error)
}

func newEvent(eventType, userID, aggregateID string, at time.Time, data map[string]string) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		UserID:      userID,
		AggregateID: aggregateID,
		OccurredAt:  at.UTC(),
		Data:        data,
	}
}

func parentValue(id *domain.CategoryID) string {
	if id == nil {
		return ""
	}
	return string(*id)
}

// CategoryMoved records a parent change. Empty parents mean the root level.
func CategoryMoved(userID string, categoryID domain.CategoryID, from, to *domain.CategoryID, at time.Time) Event {
	return newEvent(TypeCategoryMoved, userID, string(categoryID), at, map[string]string{
		"fromParentId": parentValue(from),
		"toParentId":   parentValue(to),
	})
}

// CategoryDeleted records a category removal.
func CategoryDeleted(userID string, categoryID domain.CategoryID, at time.Time) Event {
	return newEvent(TypeCategoryDeleted, userID, string(categoryID), at, nil)
}

type instrumented struct {
	next     Publisher
	recorder Recorder
}

// WithRecorder counts every event next publishes.
func WithRecorder(next Publisher, recorder Recorder) Publisher {
	if recorder == nil {
		return next
	}
	return &instrumented{next: next, recorder: recorder}
}

func (p *instrumented) Publish(ctx context.Context, events ...Event) error {
	err := p.next.Publish(ctx, events...)
	for _, e := range events {
		p.recorder.RecordEvent(e.Type, err)
	}
	return err
}
