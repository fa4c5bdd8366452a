package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"example.com/activities/internal/observability"
)

const tracerName = "example.com/activities/internal/domain"

// Service orchestrates roster workflows around the catalog.
type Service struct {
	catalog   *Catalog
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs a Service. A nil publisher or logger disables that concern.
func NewService(catalog *Catalog, publisher EventPublisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for name, view := range catalog.List() {
		observability.SetRosterSize(name, len(view.Participants))
	}
	return svc
}

// ListActivities returns the catalog snapshot.
func (s *Service) ListActivities(ctx context.Context) map[string]ActivityView {
	return s.catalog.List()
}

// Enroll signs participant up for the activity.
func (s *Service) Enroll(ctx context.Context, activity, participant string) (Confirmation, error) {
	ctx, span := startSpan(ctx, "roster.enroll", activity)
	defer span.End()

	confirmation, err := s.catalog.Enroll(activity, participant)
	observability.RecordRosterOperation(string(ActionEnrolled), outcome(err))
	if err != nil {
		endWithError(span, err)
		return Confirmation{}, err
	}
	s.afterChange(ctx, confirmation, EventTypeEnrolled)
	return confirmation, nil
}

// Withdraw removes participant from the activity.
func (s *Service) Withdraw(ctx context.Context, activity, participant string) (Confirmation, error) {
	ctx, span := startSpan(ctx, "roster.withdraw", activity)
	defer span.End()

	confirmation, err := s.catalog.Withdraw(activity, participant)
	observability.RecordRosterOperation(string(ActionWithdrawn), outcome(err))
	if err != nil {
		endWithError(span, err)
		return Confirmation{}, err
	}
	s.afterChange(ctx, confirmation, EventTypeWithdrawn)
	return confirmation, nil
}

// afterChange never fails the request: the roster has already changed.
func (s *Service) afterChange(ctx context.Context, c Confirmation, eventType string) {
	observability.SetRosterSize(c.Activity, c.RosterSize)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("roster_size", c.RosterSize))

	event := RosterEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		Activity:    c.Activity,
		Participant: c.Participant,
		RosterSize:  c.RosterSize,
		OccurredAt:  s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		observability.RecordPublishFailure(eventType)
		s.logger.Warn("roster event not published",
			zap.String("event_id", event.EventID),
			zap.String("event_type", eventType),
			zap.String("activity", c.Activity),
			zap.Error(err),
		)
	}
}

func startSpan(ctx context.Context, name, activity string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attribute.String("activity", activity)))
}

func endWithError(span trace.Span, err error) {
	span.SetAttributes(attribute.String("outcome", outcome(err)))
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrActivityNotFound):
		return "activity_not_found"
	case errors.Is(err, ErrDuplicateEnrollment):
		return "already_signed_up"
	case errors.Is(err, ErrNotEnrolled):
		return "not_signed_up"
	case errors.Is(err, ErrCapacityExceeded):
		return "activity_full"
	default:
		return "error"
	}
}
