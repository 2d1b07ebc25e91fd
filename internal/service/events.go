package service

import (
	"context"

	"github.com/spec-kit/job-tracker/internal/events"
)

func publish(ctx context.Context, d events.Dispatcher, eventType events.EventType, actorID string, payload interface{}) {
	if d == nil {
		return
	}
	_ = d.Publish(ctx, events.Event{Type: eventType, ActorID: actorID, Payload: payload})
}
