package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaProducerAddressesMessagesToTopic(t *testing.T) {
	writer := &recordingWriter{}
	producer := &KafkaProducer{writer: writer}

	msgs := []kafka.Message{
		{Key: []byte("Chess Club"), Value: []byte("a")},
		{Key: []byte("Art Club"), Value: []byte("b")},
	}
	require.NoError(t, producer.WriteMessages(t.Context(), "roster_events", msgs...))

	require.Len(t, writer.messages, 2)
	for _, msg := range writer.messages {
		require.Equal(t, "roster_events", msg.Topic)
	}
	require.Equal(t, []byte("Art Club"), writer.messages[1].Key)
	require.Empty(t, msgs[0].Topic, "caller's messages must stay untouched")
}

func TestKafkaProducerRejectsEmptyTopic(t *testing.T) {
	writer := &recordingWriter{}
	producer := &KafkaProducer{writer: writer}

	require.Error(t, producer.WriteMessages(t.Context(), "", kafka.Message{Value: []byte("x")}))
	require.Empty(t, writer.messages)
}

func TestKafkaProducerSurfacesWriterErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker unreachable")}
	producer := &KafkaProducer{writer: writer}

	err := producer.WriteMessages(t.Context(), "roster_events", kafka.Message{Value: []byte("x")})
	require.ErrorContains(t, err, "broker unreachable")

	require.NoError(t, producer.Close())
	require.True(t, writer.closed)
}

func TestNewKafkaProducerAppliesOptions(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"},
		WithClientID("activities-api"),
		WithWriteTimeout(0),
		WithProducerLogger(zaptest.NewLogger(t)),
	)

	writer, ok := producer.writer.(*kafka.Writer)
	require.True(t, ok)
	require.Empty(t, writer.Topic)
	require.Equal(t, kafka.RequireAll, writer.RequiredAcks)
	require.IsType(t, &kafka.Hash{}, writer.Balancer)

	transport, ok := writer.Transport.(*kafka.Transport)
	require.True(t, ok)
	require.Equal(t, "activities-api", transport.ClientID)
	require.Equal(t, defaultWriteTimeout, writer.WriteTimeout, "non-positive timeout keeps the default")
}
