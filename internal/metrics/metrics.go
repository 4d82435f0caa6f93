package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vidai",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"method", "route"},
	)

	// Uploads accepted by the server, before remote activation.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidai",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Total video uploads",
		},
		[]string{"content_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vidai",
			Subsystem: "media",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
	)

	ActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidai",
			Subsystem: "media",
			Name:      "activations_total",
			Help:      "Upload-and-activate outcomes by error kind",
		},
		[]string{"outcome"},
	)

	ActivationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vidai",
			Subsystem: "media",
			Name:      "activation_duration_seconds",
			Help:      "Time from upload start until the file is active or failed",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidai",
			Subsystem: "chat",
			Name:      "generations_total",
			Help:      "Content generation requests by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vidai",
			Subsystem: "chat",
			Name:      "generation_duration_seconds",
			Help:      "Content generation latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vidai",
			Subsystem: "processing",
			Name:      "queue_depth",
			Help:      "Sessions waiting for a processing worker",
		},
	)
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, route string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordUpload records an accepted or rejected upload.
func RecordUpload(contentType, status string, size int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if size > 0 {
		UploadBytesTotal.Add(float64(size))
	}
}

// RecordActivation records the outcome of one upload-and-activate run.
// Outcome is "ok" or an error kind name.
func RecordActivation(outcome string, d time.Duration) {
	ActivationsTotal.WithLabelValues(outcome).Inc()
	ActivationDuration.Observe(d.Seconds())
}

// RecordGeneration records one content generation call.
func RecordGeneration(model, outcome string, d time.Duration) {
	GenerationsTotal.WithLabelValues(model, outcome).Inc()
	GenerationDuration.WithLabelValues(model).Observe(d.Seconds())
}
