//go:build integration

package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap/zaptest"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/outbox"
)

func TestRosterEventsRoundTripThroughKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.Run(ctx, "confluentinc/confluent-local:7.5.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	topic := "roster_events"
	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
	require.NoError(t, conn.Close())

	producer := outbox.NewKafkaProducer(brokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(producer, fixedRegistry{id: 11}, topic,
		outbox.WithPollInterval(20*time.Millisecond),
		outbox.WithLogger(zaptest.NewLogger(t)),
	)
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	go dispatcher.Start(dispatchCtx)

	event := domain.RosterEvent{
		EventID:     "evt-int-1",
		EventType:   domain.EventTypeEnrolled,
		Activity:    "Chess Club",
		Participant: "emma@mergington.edu",
		RosterSize:  3,
		OccurredAt:  time.Now().UTC(),
	}
	require.NoError(t, dispatcher.Publish(ctx, event))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "roster-audit-integration",
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	store := &syncStore{}
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() {
		_ = NewProcessor(reader, NewAuditHandler(store), WithLogger(zaptest.NewLogger(t))).Run(consumerCtx)
	}()

	require.Eventually(t, func() bool { return store.len() == 1 }, time.Minute, 200*time.Millisecond)

	rec := store.first()
	require.Equal(t, "evt-int-1", rec.Event.EventID)
	require.Equal(t, "Chess Club", rec.Event.Activity)
	require.Equal(t, 11, rec.SchemaID)
	require.Equal(t, topic, rec.Topic)

	stopDispatch()
	dispatcher.Wait()
}

type fixedRegistry struct {
	id int
}

func (r fixedRegistry) EnsureSchema(context.Context, string, string) (int, error) {
	return r.id, nil
}

type syncStore struct {
	mu      sync.Mutex
	records []AuditRecord
}

func (s *syncStore) Append(_ context.Context, rec AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *syncStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *syncStore) first() AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[0]
}
