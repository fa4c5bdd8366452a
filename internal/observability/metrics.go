package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rosterOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Subsystem: "roster",
		Name:      "operations_total",
		Help:      "Roster operations grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	rosterSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "activities",
		Subsystem: "roster",
		Name:      "participants",
		Help:      "Current number of participants on each activity roster.",
	}, []string{"activity"})

	publishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Roster events that could not be handed to the outbox.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(rosterOperations, rosterSize, publishFailures)
}

// RecordRosterOperation counts an enroll or withdraw attempt by outcome.
func RecordRosterOperation(operation, outcome string) {
	rosterOperations.WithLabelValues(operation, outcome).Inc()
}

// SetRosterSize updates the roster size gauge for an activity.
func SetRosterSize(activity string, size int) {
	rosterSize.WithLabelValues(activity).Set(float64(size))
}

// RecordPublishFailure counts an event the service failed to publish.
func RecordPublishFailure(eventType string) {
	publishFailures.WithLabelValues(eventType).Inc()
}
