package domain

import (
	"context"
	"time"
)

// Event types emitted after a roster change.
const (
	EventTypeEnrolled  = "roster.enrolled"
	EventTypeWithdrawn = "roster.withdrawn"
)

// RosterEvent is the message emitted after a successful enroll or withdraw.
type RosterEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	Activity    string    `json:"activity"`
	Participant string    `json:"participant"`
	RosterSize  int       `json:"roster_size"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventPublisher hands roster events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event RosterEvent) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(context.Context, RosterEvent) error { return nil }
