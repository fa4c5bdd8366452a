package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activities",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of roster events successfully published to Kafka.",
	})

	droppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activities",
		Subsystem: "outbox",
		Name:      "events_dropped_total",
		Help:      "Number of roster events dropped after exhausting delivery attempts.",
	})

	retryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activities",
		Subsystem: "outbox",
		Name:      "batch_retries_total",
		Help:      "Number of times a batch was scheduled for another delivery attempt.",
	})

	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Subsystem: "outbox",
		Name:      "events_rejected_total",
		Help:      "Events refused at publish time, labeled by reason.",
	}, []string{"reason"})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activities",
		Subsystem: "outbox",
		Name:      "queued_events",
		Help:      "Events accepted but not yet delivered or dropped.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activities",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent encoding and delivering outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, droppedCounter, retryCounter, rejectedCounter, queueDepth, batchDuration)
}
