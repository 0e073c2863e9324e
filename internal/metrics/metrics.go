// Package metrics provides Prometheus metrics for the sync engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Event pipeline metrics
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgsync_events_total",
			Help: "Total file events reconciled, by kind and final status",
		},
		[]string{"kind", "status"},
	)

	eventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imgsync_event_duration_seconds",
			Help:    "Time spent reconciling one file event",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Registry metrics
	registryCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgsync_registry_calls_total",
			Help: "Total shortcode registry calls",
		},
		[]string{"operation", "status"},
	)

	// Transfer metrics
	transferOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgsync_transfer_operations_total",
			Help: "Total SFTP operations",
		},
		[]string{"operation", "status"},
	)

	connectAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgsync_transfer_connect_attempts_total",
			Help: "Total SFTP connection attempts",
		},
		[]string{"status"},
	)

	reconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgsync_transfer_reconnects_total",
			Help: "Total forced SFTP reconnects",
		},
		[]string{"reason"},
	)

	// Notification metrics
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgsync_notifications_total",
			Help: "Total notification backend calls",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordEvent records a reconciled event and its duration.
func RecordEvent(kind, outcome string, duration time.Duration) {
	eventsTotal.WithLabelValues(kind, outcome).Inc()
	eventDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRegistryCall records a registry request.
func RecordRegistryCall(operation string, success bool) {
	registryCallsTotal.WithLabelValues(operation, status(success)).Inc()
}

// RecordTransferOp records an SFTP put, remove or rename.
func RecordTransferOp(operation string, success bool) {
	transferOpsTotal.WithLabelValues(operation, status(success)).Inc()
}

// RecordConnectAttempt records a single dial attempt.
func RecordConnectAttempt(success bool) {
	connectAttemptsTotal.WithLabelValues(status(success)).Inc()
}

// RecordReconnect records a forced reconnect ("idle" or "error").
func RecordReconnect(reason string) {
	reconnectsTotal.WithLabelValues(reason).Inc()
}

// RecordNotification records a notification backend call.
func RecordNotification(backend, operation string, success bool) {
	notificationsTotal.WithLabelValues(backend, operation, status(success)).Inc()
}
