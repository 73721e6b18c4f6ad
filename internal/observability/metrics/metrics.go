// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_notes"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Run metrics
	RunsTotal    prometheus.Counter
	RunsActive   prometheus.Gauge
	RunsSuccess  prometheus.Counter
	RunsFailed   *prometheus.CounterVec
	RunsRejected prometheus.Counter
	RunDuration  prometheus.Histogram
	StageLatency *prometheus.HistogramVec

	// Extraction metrics
	RecordsExtracted *prometheus.CounterVec
	FallbackRecords  *prometheus.CounterVec

	// Sheet write metrics
	RowsWritten  *prometheus.CounterVec
	WriteErrors  *prometheus.CounterVec
	WriteLatency *prometheus.HistogramVec

	// Recording metrics
	RecordingsAccepted prometheus.Counter
	RecordingsRejected *prometheus.CounterVec
	AudioBytesReceived prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Run metrics
		RunsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of processing runs started",
		}),
		RunsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of processing runs in flight",
		}),
		RunsSuccess: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_success_total",
			Help:      "Total number of runs that completed every write",
		}),
		RunsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of failed runs",
		}, []string{"stage", "kind"}),
		RunsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_rejected_total",
			Help:      "Total number of runs rejected because another run was in flight",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of processing runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage"}),

		// Extraction metrics
		RecordsExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_extracted_total",
			Help:      "Total number of validated records by destination kind",
		}, []string{"kind"}),
		FallbackRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_records_total",
			Help:      "Total number of fallback records substituted for unusable output",
		}, []string{"kind", "reason"}),

		// Sheet write metrics
		RowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Total number of rows appended to the spreadsheet",
		}, []string{"kind", "target"}),
		WriteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_errors_total",
			Help:      "Total number of failed spreadsheet writes",
		}, []string{"kind", "target"}),
		WriteLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_latency_seconds",
			Help:      "Spreadsheet append latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"target"}),

		// Recording metrics
		RecordingsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_accepted_total",
			Help:      "Total number of recordings accepted",
		}),
		RecordingsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_rejected_total",
			Help:      "Total number of recordings rejected at intake",
		}, []string{"reason"}),
		AudioBytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// STT metrics
		STTLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		STTErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// HTTP metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "code"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordRunStart records a new run starting.
func (m *Metrics) RecordRunStart() {
	m.RunsTotal.Inc()
	m.RunsActive.Inc()
}

// RecordRunEnd records a run reaching a terminal state. stage and kind are
// ignored on success.
func (m *Metrics) RecordRunEnd(success bool, stage, kind string, durationSeconds float64) {
	m.RunsActive.Dec()
	m.RunDuration.Observe(durationSeconds)
	if success {
		m.RunsSuccess.Inc()
	} else {
		m.RunsFailed.WithLabelValues(stage, kind).Inc()
	}
}

// RecordRunRejected records a run refused because another was in flight.
func (m *Metrics) RecordRunRejected() {
	m.RunsRejected.Inc()
}

// RecordStage records the latency of a pipeline stage.
func (m *Metrics) RecordStage(stage string, latencySeconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(latencySeconds)
}

// RecordExtraction records validated records and any fallback substitution.
func (m *Metrics) RecordExtraction(kind string, records int, fallback bool) {
	m.RecordsExtracted.WithLabelValues(kind).Add(float64(records))
	if fallback {
		m.FallbackRecords.WithLabelValues(kind, "malformed_output").Inc()
	}
}

// RecordEmptyExtraction records a fallback row emitted for zero records.
func (m *Metrics) RecordEmptyExtraction(kind string) {
	m.FallbackRecords.WithLabelValues(kind, "no_records").Inc()
}

// RecordWrite records a spreadsheet append attempt.
func (m *Metrics) RecordWrite(kind, target string, rows int, err error, latencySeconds float64) {
	m.WriteLatency.WithLabelValues(target).Observe(latencySeconds)
	if err != nil {
		m.WriteErrors.WithLabelValues(kind, target).Inc()
		return
	}
	m.RowsWritten.WithLabelValues(kind, target).Add(float64(rows))
}

// RecordRecordingAccepted records audio accepted at intake.
func (m *Metrics) RecordRecordingAccepted(bytes int) {
	m.RecordingsAccepted.Inc()
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordRecordingRejected records a recording refused at intake.
func (m *Metrics) RecordRecordingRejected(reason string) {
	m.RecordingsRejected.WithLabelValues(reason).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordSTT records a transcription call.
func (m *Metrics) RecordSTT(provider string, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordHTTP records an API request.
func (m *Metrics) RecordHTTP(method, route, code string, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(latencySeconds)
}
