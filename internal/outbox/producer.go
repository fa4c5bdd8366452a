package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 10 * time.Second

type batchWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// ProducerOption tunes the Kafka writer behind a KafkaProducer.
type ProducerOption func(*producerSettings)

type producerSettings struct {
	clientID     string
	writeTimeout time.Duration
	logger       *zap.Logger
}

// WithClientID names the producer in broker logs and quotas.
func WithClientID(id string) ProducerOption {
	return func(s *producerSettings) {
		if id != "" {
			s.clientID = id
		}
	}
}

// WithWriteTimeout bounds a single produce request.
func WithWriteTimeout(timeout time.Duration) ProducerOption {
	return func(s *producerSettings) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

// WithProducerLogger routes kafka-go error logs to logger.
func WithProducerLogger(logger *zap.Logger) ProducerOption {
	return func(s *producerSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// KafkaProducer publishes roster messages through one shared writer. The destination
// topic travels on each message, so a single connection pool serves every topic.
type KafkaProducer struct {
	writer batchWriter
}

// NewKafkaProducer builds a producer for brokers. Messages are partitioned by key so
// every change to one activity lands on one partition in order.
func NewKafkaProducer(brokers []string, opts ...ProducerOption) *KafkaProducer {
	settings := producerSettings{
		clientID:     "activities",
		writeTimeout: defaultWriteTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	sugar := settings.logger.Sugar()
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           settings.writeTimeout,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: settings.clientID},
		ErrorLogger:            kafka.LoggerFunc(sugar.Errorf),
	}}
}

// WriteMessages sends msgs to topic. The caller's messages are not modified.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if topic == "" {
		return fmt.Errorf("kafka producer: empty topic")
	}
	addressed := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		msg.Topic = topic
		addressed[i] = msg
	}
	return p.writer.WriteMessages(ctx, addressed...)
}

// Close flushes pending writes and releases broker connections.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
