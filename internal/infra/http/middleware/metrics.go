package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	stageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_stage_transitions_total",
			Help: "Lead stage transitions by target stage and outcome",
		},
		[]string{"target", "outcome"},
	)

	reminderNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_reminder_notifications_total",
			Help: "Notifications created by the reminder scanner",
		},
		[]string{"rule"},
	)

	reminderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_reminder_errors_total",
			Help: "Per-lead failures during reminder scans",
		},
		[]string{"rule"},
	)

	reminderRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lead_reminder_run_duration_seconds",
			Help:    "Duration of complete reminder runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	notificationsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_cleaned_total",
			Help: "Read notifications removed by the retention sweep",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		// route pattern keeps lead ids out of the label set
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordStageTransition counts a transition attempt; outcome is "ok" or the error code.
func RecordStageTransition(target, outcome string) {
	stageTransitions.WithLabelValues(target, outcome).Inc()
}

func RecordReminderRun(inactiveNotified, expiringNotified, inactiveErrors, expiringErrors int, duration time.Duration) {
	reminderNotifications.WithLabelValues("inactive").Add(float64(inactiveNotified))
	reminderNotifications.WithLabelValues("expiring").Add(float64(expiringNotified))
	reminderErrors.WithLabelValues("inactive").Add(float64(inactiveErrors))
	reminderErrors.WithLabelValues("expiring").Add(float64(expiringErrors))
	reminderRunDuration.Observe(duration.Seconds())
}

func RecordNotificationsCleaned(n int64) {
	notificationsCleaned.Add(float64(n))
}
