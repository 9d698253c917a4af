package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tick_ingestor"

var (
	// Registry holds the ingestor's collectors plus Go runtime metrics.
	Registry = prometheus.NewRegistry()

	feedConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "1 while the upstream WebSocket is connected.",
		},
	)

	feedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_total",
			Help:      "Inbound feed messages by classified kind.",
		},
		[]string{"kind"},
	)

	feedDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because the client buffer was full.",
		},
	)

	heartbeatsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "heartbeats_sent_total",
			Help:      "Outbound heartbeat attempts by result.",
		},
		[]string{"result"},
	)

	malformedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "malformed_events_total",
			Help:      "Messages dropped because classification failed.",
		},
	)

	batchSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "pending_records",
			Help:      "Records accumulated and not yet flushed.",
		},
	)

	flushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "flushes_total",
			Help:      "Batches committed to the store.",
		},
	)

	rowsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "rows_written_total",
			Help:      "Price rows committed to the store.",
		},
	)

	writeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "write_errors_total",
			Help:      "Batch writes that failed and were not committed.",
		},
	)

	recordsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "records_dropped_total",
			Help:      "Records never persisted, by reason.",
		},
		[]string{"reason"},
	)

	flushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "flush_duration_seconds",
			Help:      "Duration of batch insert transactions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)
)

// Drop reasons for RecordDropped.
const (
	ReasonWriteFailed = "write_failed"
	ReasonShutdown    = "shutdown"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		feedConnected,
		feedMessages,
		feedDropped,
		heartbeatsSent,
		malformedEvents,
		batchSize,
		flushes,
		rowsWritten,
		writeErrors,
		recordsDropped,
		flushDuration,
	)
}

// Handler returns an HTTP handler exposing the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetFeedConnected records the WebSocket connection state.
func SetFeedConnected(connected bool) {
	if connected {
		feedConnected.Set(1)
		return
	}
	feedConnected.Set(0)
}

// RecordMessage counts a classified inbound message.
func RecordMessage(kind string) {
	feedMessages.WithLabelValues(kind).Inc()
}

// RecordFrameDropped counts a frame discarded by the feed client.
func RecordFrameDropped() {
	feedDropped.Inc()
}

// RecordHeartbeat counts an outbound heartbeat attempt.
func RecordHeartbeat(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	heartbeatsSent.WithLabelValues(result).Inc()
}

// RecordMalformed counts a price event that failed classification.
func RecordMalformed() {
	malformedEvents.Inc()
}

// SetPendingRecords records the current accumulator size.
func SetPendingRecords(n int) {
	batchSize.Set(float64(n))
}

// RecordFlush records a committed batch.
func RecordFlush(records int, duration time.Duration) {
	flushes.Inc()
	rowsWritten.Add(float64(records))
	flushDuration.Observe(duration.Seconds())
}

// RecordWriteError records a failed batch write.
func RecordWriteError() {
	writeErrors.Inc()
}

// RecordDropped records records that will never be persisted.
func RecordDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	recordsDropped.WithLabelValues(reason).Add(float64(n))
}
