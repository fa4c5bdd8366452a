// Package outbox buffers roster events and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/activities/internal/domain"
)

var (
	// ErrQueueFull is returned by Publish when the in-memory queue has no room.
	ErrQueueFull = errors.New("outbox queue full")
	// ErrInvalidEvent is returned by Publish when the event does not match its schema.
	ErrInvalidEvent = errors.New("invalid roster event")
)

const (
	maxBackoff   = 30 * time.Second
	drainTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the logger used to report delivery problems.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithPollInterval sets how often a partial batch is flushed.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// WithBatchSize sets the number of events that triggers an immediate flush.
func WithBatchSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batchSize = size
		}
	}
}

// WithQueueSize bounds the number of events waiting for delivery.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithMaxAttempts bounds delivery attempts per batch.
func WithMaxAttempts(attempts int) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.maxAttempts = attempts
		}
	}
}

// WithBaseDelay sets the first retry delay; later retries double it.
func WithBaseDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay > 0 {
			d.baseDelay = delay
		}
	}
}

type pendingEvent struct {
	event   domain.RosterEvent
	payload []byte
}

// Dispatcher queues roster events and delivers them to Kafka using Schema Registry framing.
type Dispatcher struct {
	producer         messageWriter
	registry         schemaRegistrar
	topic            string
	subject          string
	queue            chan pendingEvent
	queueSize        int
	pollInterval     time.Duration
	batchSize        int
	maxAttempts      int
	baseDelay        time.Duration
	logger           *zap.Logger
	schemaIDCache    sync.Map
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher for the given topic.
func NewDispatcher(producer messageWriter, registry schemaRegistrar, topic string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		producer:         producer,
		registry:         registry,
		topic:            topic,
		subject:          topic + "-value",
		queueSize:        1024,
		pollInterval:     2 * time.Second,
		batchSize:        25,
		maxAttempts:      5,
		baseDelay:        200 * time.Millisecond,
		logger:           zap.NewNop(),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan pendingEvent, d.queueSize)
	return d
}

// Publish validates the event and enqueues it. It never blocks on a full queue.
func (d *Dispatcher) Publish(_ context.Context, event domain.RosterEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if _, err := validatePayload(event.EventType, payload); err != nil {
		rejectedCounter.WithLabelValues("invalid").Inc()
		return err
	}

	select {
	case d.queue <- pendingEvent{event: event, payload: payload}:
		queueDepth.Inc()
		return nil
	default:
		rejectedCounter.WithLabelValues("queue_full").Inc()
		return ErrQueueFull
	}
}

// Start launches the delivery loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	batch := make([]pendingEvent, 0, d.batchSize)
	for {
		select {
		case <-ctx.Done():
			d.drain(batch)
			return
		case pending := <-d.queue:
			batch = append(batch, pending)
			if len(batch) >= d.batchSize {
				d.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// Wait waits until dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// drain delivers whatever is still queued once the loop has been cancelled.
func (d *Dispatcher) drain(batch []pendingEvent) {
collect:
	for {
		select {
		case pending := <-d.queue:
			batch = append(batch, pending)
		default:
			break collect
		}
	}
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for start := 0; start < len(batch); start += d.batchSize {
		end := min(start+d.batchSize, len(batch))
		d.flush(ctx, batch[start:end])
	}
}

func (d *Dispatcher) flush(ctx context.Context, batch []pendingEvent) {
	start := time.Now()
	defer func() {
		batchDuration.Observe(time.Since(start).Seconds())
		queueDepth.Sub(float64(len(batch)))
	}()

	// Once shutdown cancels ctx the in-flight batch moves to a bounded context of its own.
	writeCtx, detached := ctx, false
	var release context.CancelFunc
	defer func() {
		if release != nil {
			release()
		}
	}()
	detach := func() {
		if detached || ctx.Err() == nil {
			return
		}
		writeCtx, release = context.WithTimeout(context.Background(), drainTimeout)
		detached = true
	}

	detach()
	messages, err := d.encode(writeCtx, batch)
	if err != nil {
		d.logger.Error("outbox: encode failure", zap.Int("events", len(batch)), zap.Error(err))
		droppedCounter.Add(float64(len(batch)))
		return
	}

	for attempt := 1; ; attempt++ {
		detach()
		err = d.producer.WriteMessages(writeCtx, d.topic, messages...)
		if err == nil {
			deliveredCounter.Add(float64(len(messages)))
			return
		}
		if attempt >= d.maxAttempts || (detached && writeCtx.Err() != nil) {
			break
		}

		retryCounter.Inc()
		delay := d.backoffDelay(attempt)
		d.logger.Warn("outbox: delivery failure, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		detach()
		timer := time.NewTimer(delay)
		select {
		case <-writeCtx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	droppedCounter.Add(float64(len(messages)))
	d.logger.Error("outbox: dropping batch",
		zap.String("topic", d.topic),
		zap.Int("events", len(messages)),
		zap.Error(err),
	)
}

func (d *Dispatcher) encode(ctx context.Context, batch []pendingEvent) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(batch))
	for _, pending := range batch {
		meta, ok := schemaCatalog[pending.event.EventType]
		if !ok {
			return nil, fmt.Errorf("no schema metadata for event_type=%s", pending.event.EventType)
		}

		schemaID, err := d.schemaID(ctx, meta.Schema)
		if err != nil {
			return nil, err
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(pending.event.Activity),
			Value: encodeWireFormat(schemaID, pending.payload),
			Time:  pending.event.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(pending.event.EventType)},
				{Key: "event_id", Value: []byte(pending.event.EventID)},
				{Key: "schema_subject", Value: []byte(d.subject)},
			},
		})
	}
	return messages, nil
}

func (d *Dispatcher) schemaID(ctx context.Context, schema string) (int, error) {
	cacheKey := fmt.Sprintf("%s::%s", d.subject, schema)
	if cached, found := d.schemaIDCache.Load(cacheKey); found {
		return cached.(int), nil
	}
	id, err := d.registry.EnsureSchema(ctx, d.subject, schema)
	if err != nil {
		return 0, err
	}
	d.schemaIDCache.Store(cacheKey, id)
	return id, nil
}

// backoffDelay calculates exponential backoff capped at maxBackoff.
func (d *Dispatcher) backoffDelay(attempt int) time.Duration {
	if attempt > 16 {
		return maxBackoff
	}
	delay := time.Duration(1<<uint(attempt-1)) * d.baseDelay
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}
	return delay
}

// encodeWireFormat applies Confluent framing for Schema Registry aware payloads.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
