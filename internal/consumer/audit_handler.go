package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/activities/internal/domain"
)

// ErrMismatchedEvent is returned when the payload disagrees with the record headers.
var ErrMismatchedEvent = errors.New("payload does not match record headers")

// AuditRecord is one roster change together with where it was read from.
type AuditRecord struct {
	Event     domain.RosterEvent
	Topic     string
	Partition int
	Offset    int64
	SchemaID  int
}

// AuditStore persists audit records. Appending the same event twice must be harmless.
type AuditStore interface {
	Append(context.Context, AuditRecord) error
}

// AuditHandler stores every consumed roster event in an append-only log.
type AuditHandler struct {
	store AuditStore
}

// NewAuditHandler constructs a handler writing to store.
func NewAuditHandler(store AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

// Handle decodes the roster event and appends it to the store.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	var event domain.RosterEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode roster event: %w", err)
	}
	if event.EventType != msg.EventType {
		return fmt.Errorf("%w: event_type %q vs header %q", ErrMismatchedEvent, event.EventType, msg.EventType)
	}
	if msg.EventID != "" && event.EventID != msg.EventID {
		return fmt.Errorf("%w: event_id %q vs header %q", ErrMismatchedEvent, event.EventID, msg.EventID)
	}

	return h.store.Append(ctx, AuditRecord{
		Event:     event,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		SchemaID:  msg.SchemaID,
	})
}
