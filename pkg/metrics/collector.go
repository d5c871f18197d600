package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of updates processed labeled by route kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	handlerDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_handler_duration_seconds",
			Help:    "Duration of handler invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	transportRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_requests_total",
			Help: "Total number of Bot API requests labeled by method and status",
		},
		[]string{"method", "status"},
	)
	transportDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telegram_request_duration_seconds",
			Help:    "Duration of Bot API requests in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"method"},
	)
	pollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_poll_cycles_total",
			Help: "Total number of getUpdates cycles labeled by result",
		},
		[]string{"result"},
	)
	pollOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_poll_offset",
			Help: "Next update id requested from the Bot API",
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_errors_total",
			Help: "Total number of errors split by type and pipeline stage",
		},
		[]string{"type", "stage"},
	)
)

// RecordUpdate counts a processed update.
func RecordUpdate(kind, outcome string) {
	updatesTotal.WithLabelValues(orUnknown(kind), orUnknown(outcome)).Inc()
}

// RecordHandler records the duration of a single handler invocation.
func RecordHandler(kind string, duration time.Duration) {
	handlerDurationSeconds.WithLabelValues(orUnknown(kind)).Observe(duration.Seconds())
}

// RecordRequest increments request counters and records duration for a Bot API method.
func RecordRequest(method, status string, duration time.Duration) {
	transportRequestsTotal.WithLabelValues(orUnknown(method), orUnknown(status)).Inc()
	transportDurationSeconds.WithLabelValues(orUnknown(method)).Observe(duration.Seconds())
}

// RecordPollCycle counts a getUpdates round trip.
func RecordPollCycle(result string) {
	pollCyclesTotal.WithLabelValues(orUnknown(result)).Inc()
}

// SetPollOffset exposes the current poll offset.
func SetPollOffset(offset int) {
	pollOffset.Set(float64(offset))
}

// RecordError increments error counters with metadata.
func RecordError(errType, stage string) {
	if stage == "" {
		stage = "none"
	}

	errorsTotal.WithLabelValues(orUnknown(errType), stage).Inc()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}

	return v
}
