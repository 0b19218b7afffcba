// Package metrics defines Prometheus instrumentation for the recorder client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the recorder
type Metrics struct {
	// Session lifecycle metrics
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsCancelled prometheus.Counter
	SessionsFailed    prometheus.Counter
	RecordingDuration prometheus.Histogram

	// Upload metrics
	UploadRequests  prometheus.Counter
	UploadSuccesses prometheus.Counter
	UploadFailures  prometheus.Counter
	UploadDuration  prometheus.Histogram
	UploadBytes     prometheus.Histogram

	// Summary metrics
	SummaryRequests prometheus.Counter
	SummaryFailures prometheus.Counter

	// Progress channel metrics
	ProgressEvents      prometheus.Counter
	ProgressChunks      prometheus.Counter
	ProgressDisconnects prometheus.Counter

	// Diagnostics HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_completed_total",
			Help: "Total number of sessions reaching the Complete state",
		}),
		SessionsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_cancelled_total",
			Help: "Total number of sessions cancelled by the user",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_failed_total",
			Help: "Total number of sessions ending in the Errored state",
		}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_recording_duration_seconds",
			Help:    "Duration of completed recordings",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}),

		UploadRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_upload_requests_total",
			Help: "Total number of upload attempts",
		}),
		UploadSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_upload_successes_total",
			Help: "Total number of successful uploads",
		}),
		UploadFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_upload_failures_total",
			Help: "Total number of failed uploads",
		}),
		UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_upload_duration_seconds",
			Help:    "Upload round-trip time including transcription",
			Buckets: prometheus.DefBuckets,
		}),
		UploadBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_upload_bytes",
			Help:    "Size of upload payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),

		SummaryRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_summary_requests_total",
			Help: "Total number of summary generation calls",
		}),
		SummaryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_summary_failures_total",
			Help: "Total number of failed summary generations (non-fatal)",
		}),

		ProgressEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_progress_events_total",
			Help: "Total number of progress events received",
		}),
		ProgressChunks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_progress_chunks_total",
			Help: "Total number of partial-transcript chunks received",
		}),
		ProgressDisconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_progress_disconnects_total",
			Help: "Total number of progress channel disconnects",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_diag_http_requests_total",
			Help: "Total diagnostics HTTP requests by method, endpoint, and status",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recorder_diag_http_request_duration_seconds",
			Help:    "Diagnostics HTTP request duration by method and endpoint",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordHTTPRequest records a diagnostics HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, duration float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}
