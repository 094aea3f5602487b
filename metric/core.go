package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level sink metrics (not backend-specific)
type Metrics struct {
	// Append path metrics
	EventsAppended *prometheus.CounterVec
	BytesWritten   *prometheus.CounterVec
	AppendErrors   *prometheus.CounterVec

	// Writer lifecycle metrics
	WritersOpened    *prometheus.CounterVec
	WritersClosed    *prometheus.CounterVec
	WritersEvicted   *prometheus.CounterVec
	WriterOpenErrors *prometheus.CounterVec
	WritersOpen      *prometheus.GaugeVec

	// Format resolution metrics
	FormatFallbacks *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EventsAppended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "sink",
				Name:      "events_appended_total",
				Help:      "Total number of events appended",
			},
			[]string{"sink"},
		),

		BytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "sink",
				Name:      "bytes_written_total",
				Help:      "Total serialized bytes handed to writers",
			},
			[]string{"sink"},
		),

		AppendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "sink",
				Name:      "append_errors_total",
				Help:      "Total number of failed appends",
			},
			[]string{"sink"},
		),

		WritersOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "writer",
				Name:      "opened_total",
				Help:      "Total number of writers opened",
			},
			[]string{"sink"},
		),

		WritersClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "writer",
				Name:      "closed_total",
				Help:      "Total number of writers closed",
			},
			[]string{"sink"},
		),

		WritersEvicted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "writer",
				Name:      "evicted_total",
				Help:      "Total number of writers closed by cache eviction",
			},
			[]string{"sink"},
		),

		WriterOpenErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "writer",
				Name:      "open_errors_total",
				Help:      "Total number of writer open failures",
			},
			[]string{"sink"},
		),

		WritersOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flume",
				Subsystem: "writer",
				Name:      "open",
				Help:      "Number of writers currently open",
			},
			[]string{"sink"},
		),

		FormatFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flume",
				Subsystem: "format",
				Name:      "fallbacks_total",
				Help:      "Times a configured format failed to resolve and a fallback was used",
			},
			[]string{"sink"},
		),
	}
}

// RecordAppend increments the appended counter and byte count for a sink
func (m *Metrics) RecordAppend(sink string, bytes int) {
	m.EventsAppended.WithLabelValues(sink).Inc()
	m.BytesWritten.WithLabelValues(sink).Add(float64(bytes))
}

// RecordAppendError increments the append error counter
func (m *Metrics) RecordAppendError(sink string) {
	m.AppendErrors.WithLabelValues(sink).Inc()
}

// RecordWriterOpened increments opened counter and the open gauge
func (m *Metrics) RecordWriterOpened(sink string) {
	m.WritersOpened.WithLabelValues(sink).Inc()
	m.WritersOpen.WithLabelValues(sink).Inc()
}

// RecordWriterClosed increments closed counter and decrements the open gauge
func (m *Metrics) RecordWriterClosed(sink string) {
	m.WritersClosed.WithLabelValues(sink).Inc()
	m.WritersOpen.WithLabelValues(sink).Dec()
}

// RecordWriterEvicted increments the eviction counter and decrements the open gauge
func (m *Metrics) RecordWriterEvicted(sink string) {
	m.WritersEvicted.WithLabelValues(sink).Inc()
	m.WritersOpen.WithLabelValues(sink).Dec()
}

// RecordWriterOpenError increments the open error counter
func (m *Metrics) RecordWriterOpenError(sink string) {
	m.WriterOpenErrors.WithLabelValues(sink).Inc()
}

// RecordFormatFallback increments the format fallback counter
func (m *Metrics) RecordFormatFallback(sink string) {
	m.FormatFallbacks.WithLabelValues(sink).Inc()
}
