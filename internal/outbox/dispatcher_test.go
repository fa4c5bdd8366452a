package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/activities/internal/domain"
)

func TestDispatcherPublishesFramedMessages(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := NewDispatcher(producer, registry, "roster_events", WithLogger(zaptest.NewLogger(t)))

	event := rosterEvent("Chess Club", domain.EventTypeEnrolled)
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	beforeDelivered := testutil.ToFloat64(deliveredCounter)
	beforeHistogram := histogramSampleCount(t)

	dispatcher.flush(context.Background(), []pendingEvent{<-dispatcher.queue})

	require.Len(t, producer.writes, 1)
	require.Equal(t, "roster_events", producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)

	msg := producer.writes[0].messages[0]
	require.Equal(t, []byte("Chess Club"), msg.Key)
	require.Equal(t, byte(0), msg.Value[0])
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(msg.Value[1:5]))

	var decoded domain.RosterEvent
	require.NoError(t, json.Unmarshal(msg.Value[5:], &decoded))
	require.Equal(t, event.EventID, decoded.EventID)
	require.Equal(t, 3, decoded.RosterSize)

	require.Equal(t, domain.EventTypeEnrolled, headerString(msg, "event_type"))
	require.Equal(t, event.EventID, headerString(msg, "event_id"))
	require.Equal(t, "roster_events-value", headerString(msg, "schema_subject"))

	require.InDelta(t, beforeDelivered+1, testutil.ToFloat64(deliveredCounter), 0.0001)
	require.Greater(t, histogramSampleCount(t), beforeHistogram)
}

func TestDispatcherCachesSchemaIDsAcrossBatch(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 21}
	dispatcher := NewDispatcher(producer, registry, "roster_events")

	batch := []pendingEvent{
		pending(t, rosterEvent("Chess Club", domain.EventTypeEnrolled)),
		pending(t, rosterEvent("Art Club", domain.EventTypeWithdrawn)),
	}
	dispatcher.flush(context.Background(), batch)

	require.Len(t, producer.writes, 1)
	require.Len(t, producer.writes[0].messages, 2)
	require.Len(t, registry.calls, 1, "schema registry should be invoked once due to cache")
	require.Equal(t, "roster_events-value", registry.calls[0].subject)
}

func TestDispatcherRetriesThenDrops(t *testing.T) {
	producer := &stubProducer{err: errors.New("kafka write failed")}
	registry := &stubRegistry{id: 7}
	dispatcher := NewDispatcher(producer, registry, "roster_events",
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
	)

	beforeDropped := testutil.ToFloat64(droppedCounter)
	beforeRetries := testutil.ToFloat64(retryCounter)

	dispatcher.flush(context.Background(), []pendingEvent{pending(t, rosterEvent("Chess Club", domain.EventTypeEnrolled))})

	require.Equal(t, 3, producer.attempts)
	require.InDelta(t, beforeRetries+2, testutil.ToFloat64(retryCounter), 0.0001)
	require.InDelta(t, beforeDropped+1, testutil.ToFloat64(droppedCounter), 0.0001)
}

func TestDispatcherRecoversAfterTransientFailure(t *testing.T) {
	producer := &stubProducer{err: errors.New("leader not available"), failures: 1}
	dispatcher := NewDispatcher(producer, &stubRegistry{id: 3}, "roster_events", WithBaseDelay(time.Millisecond))

	dispatcher.flush(context.Background(), []pendingEvent{pending(t, rosterEvent("Art Club", domain.EventTypeWithdrawn))})

	require.Equal(t, 2, producer.attempts)
	require.Len(t, producer.writes, 1)
}

func TestDispatcherKeepsRetryingInFlightBatchAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer := &stubProducer{err: errors.New("not leader for partition"), failures: 1, honorCtx: true}
	producer.onAttempt = func(int) { cancel() }
	dispatcher := NewDispatcher(producer, &stubRegistry{id: 8}, "roster_events",
		WithBaseDelay(time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
	)

	beforeDropped := testutil.ToFloat64(droppedCounter)
	dispatcher.flush(ctx, []pendingEvent{pending(t, rosterEvent("Drama Club", domain.EventTypeEnrolled))})

	require.Equal(t, 2, producer.attempts)
	require.Equal(t, 1, producer.messageCount())
	require.InDelta(t, beforeDropped, testutil.ToFloat64(droppedCounter), 0.0001)
}

func TestDispatcherDropsBatchWhenRegistryFails(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{err: errors.New("registry unavailable")}
	dispatcher := NewDispatcher(producer, registry, "roster_events", WithLogger(zaptest.NewLogger(t)))

	beforeDropped := testutil.ToFloat64(droppedCounter)
	dispatcher.flush(context.Background(), []pendingEvent{pending(t, rosterEvent("Chess Club", domain.EventTypeEnrolled))})

	require.Empty(t, producer.writes)
	require.Zero(t, producer.attempts)
	require.InDelta(t, beforeDropped+1, testutil.ToFloat64(droppedCounter), 0.0001)
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	dispatcher := NewDispatcher(&stubProducer{}, &stubRegistry{}, "roster_events")

	unknown := rosterEvent("Chess Club", "roster.renamed")
	require.ErrorIs(t, dispatcher.Publish(context.Background(), unknown), ErrInvalidEvent)

	blank := rosterEvent("", domain.EventTypeEnrolled)
	require.ErrorIs(t, dispatcher.Publish(context.Background(), blank), ErrInvalidEvent)

	require.Empty(t, dispatcher.queue)
}

func TestPublishReturnsQueueFull(t *testing.T) {
	dispatcher := NewDispatcher(&stubProducer{}, &stubRegistry{}, "roster_events", WithQueueSize(1))

	require.NoError(t, dispatcher.Publish(context.Background(), rosterEvent("Chess Club", domain.EventTypeEnrolled)))
	err := dispatcher.Publish(context.Background(), rosterEvent("Chess Club", domain.EventTypeEnrolled))
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestStartDrainsQueueOnShutdown(t *testing.T) {
	producer := &stubProducer{}
	dispatcher := NewDispatcher(producer, &stubRegistry{id: 5}, "roster_events",
		WithPollInterval(time.Hour),
		WithBatchSize(2),
	)

	for i := 0; i < 5; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), rosterEvent("Chess Club", domain.EventTypeEnrolled)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go dispatcher.Start(ctx)
	dispatcher.Wait()

	require.Equal(t, 5, producer.messageCount())
}

func TestStartFlushesOnTicker(t *testing.T) {
	producer := &stubProducer{}
	dispatcher := NewDispatcher(producer, &stubRegistry{id: 5}, "roster_events",
		WithPollInterval(5*time.Millisecond),
		WithBatchSize(100),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Start(ctx)

	require.NoError(t, dispatcher.Publish(ctx, rosterEvent("Art Club", domain.EventTypeEnrolled)))
	require.Eventually(t, func() bool { return producer.messageCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	dispatcher.Wait()
}

func TestBackoffDelayCaps(t *testing.T) {
	dispatcher := NewDispatcher(&stubProducer{}, &stubRegistry{}, "roster_events", WithBaseDelay(time.Second))

	require.Equal(t, time.Second, dispatcher.backoffDelay(1))
	require.Equal(t, 4*time.Second, dispatcher.backoffDelay(3))
	require.Equal(t, maxBackoff, dispatcher.backoffDelay(10))
	require.Equal(t, maxBackoff, dispatcher.backoffDelay(80))
}

func rosterEvent(activity, eventType string) domain.RosterEvent {
	return domain.RosterEvent{
		EventID:     "evt-" + eventType + "-" + activity,
		EventType:   eventType,
		Activity:    activity,
		Participant: "emma@mergington.edu",
		RosterSize:  3,
		OccurredAt:  time.Date(2024, 9, 2, 15, 30, 0, 0, time.UTC),
	}
}

func pending(t *testing.T, event domain.RosterEvent) pendingEvent {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return pendingEvent{event: event, payload: payload}
}

func headerString(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}

type stubProducer struct {
	mu        sync.Mutex
	err       error
	failures  int
	attempts  int
	honorCtx  bool
	onAttempt func(attempt int)
	writes    []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.onAttempt != nil {
		s.onAttempt(s.attempts)
	}
	if s.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if s.err != nil && (s.failures == 0 || s.attempts <= s.failures) {
		return s.err
	}

	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

func (s *stubProducer) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, w := range s.writes {
		total += len(w.messages)
	}
	return total
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []schemaCall
}

type schemaCall struct {
	subject string
	schema  string
}

func (s *stubRegistry) EnsureSchema(_ context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, schemaCall{subject: subject, schema: schema})
	if s.err != nil {
		return 0, s.err
	}
	if s.id == 0 {
		s.id = 1
	}
	return s.id, nil
}
