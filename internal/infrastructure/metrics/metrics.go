package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mentor server metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mentor",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Messages handled, by assistant type and outcome",
		},
		[]string{"assistant_type", "outcome"},
	)

	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "ai_gateway",
			Name:      "requests_total",
			Help:      "Calls to the AI service",
		},
		[]string{"endpoint", "outcome"},
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mentor",
			Subsystem: "ai_gateway",
			Name:      "request_duration_seconds",
			Help:      "AI service call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"endpoint"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "extractor",
			Name:      "extractions_total",
			Help:      "Attachment text extractions, by document kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "upload",
			Name:      "uploads_total",
			Help:      "Staged attachment uploads",
		},
		[]string{"backend", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "upload",
			Name:      "upload_bytes_total",
			Help:      "Total bytes staged",
		},
		[]string{"backend"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Conversation events published",
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordMessage records a handled message
func RecordMessage(assistantType, outcome string) {
	MessagesTotal.WithLabelValues(assistantType, outcome).Inc()
}

// RecordGatewayCall records a call to the AI service
func RecordGatewayCall(endpoint, outcome string, durationSec float64) {
	GatewayRequests.WithLabelValues(endpoint, outcome).Inc()
	GatewayDuration.WithLabelValues(endpoint).Observe(durationSec)
}

// RecordExtraction records a text extraction
func RecordExtraction(kind, outcome string) {
	ExtractionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordUpload records a staged upload
func RecordUpload(backend, status string, bytes int64) {
	UploadsTotal.WithLabelValues(backend, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(backend).Add(float64(bytes))
	}
}

// RecordEvent records an event publish attempt
func RecordEvent(status string) {
	EventsPublished.WithLabelValues(status).Inc()
}
