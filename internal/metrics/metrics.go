package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "ptrun"
)

// EnvelopeOther labels envelopes with an unrecognized name
const EnvelopeOther = "other"

// Drop reasons reported by the dispatcher
const (
	DropInvalidJSON    = "invalid_json"
	DropInvalidPayload = "invalid_payload"
	DropUnknownTest    = "unknown_test"
	DropNoActiveTest   = "no_active_test"
	DropUnknownName    = "unknown_name"
)

var (
	runsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_started_total",
		Help:      "Count of test runs started",
	}, []string{
		"transport",
	})

	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_finished_total",
		Help:      "Count of test runs that reached a final status",
	}, []string{
		"status",
	})

	envelopesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "envelopes_total",
		Help:      "Count of protocol envelopes received",
	}, []string{
		"name",
	})

	envelopesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "envelopes_dropped_total",
		Help:      "Count of protocol envelopes dropped without a state change",
	}, []string{
		"reason",
	})

	cancelDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "cancel_duration_seconds",
		Help:      "Time spent waiting for a cancelled run to close",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
)

func RecordRunStarted(transport string) {
	runsStarted.WithLabelValues(transport).Inc()
}

func RecordRunFinished(status string) {
	runsFinished.WithLabelValues(status).Inc()
}

func RecordEnvelope(name string) {
	envelopesTotal.WithLabelValues(name).Inc()
}

func RecordEnvelopeDropped(reason string) {
	envelopesDropped.WithLabelValues(reason).Inc()
}

func RecordCancel(d time.Duration) {
	cancelDuration.Observe(d.Seconds())
}
