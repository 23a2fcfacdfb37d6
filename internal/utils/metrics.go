package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	registry *prometheus.Registry

	requests   prometheus.Counter
	errors     prometheus.Counter
	operations *prometheus.HistogramVec

	messagesSent  prometheus.Counter
	chatReplies   *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	remindersMade prometheus.Counter

	systemStartTime time.Time
}

// NewMetricsCollector builds a collector on its own registry so tests can
// create as many as they like.
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pillscare",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pillscare",
			Name:      "errors_total",
			Help:      "Operations that returned an error.",
		}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pillscare",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pillscare",
			Name:      "messages_sent_total",
			Help:      "Direct messages appended.",
		}),
		chatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pillscare",
			Name:      "chatbot_replies_total",
			Help:      "Chatbot replies by matched category.",
		}, []string{"category"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pillscare",
			Name:      "emergency_alerts_total",
			Help:      "Emergency alerts dispatched by delivery outcome.",
		}, []string{"delivered"}),
		remindersMade: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pillscare",
			Name:      "reminders_created_total",
			Help:      "Medicine reminders created.",
		}),
		systemStartTime: time.Now(),
	}
	mc.registry.MustRegister(
		collectors.NewGoCollector(),
		mc.requests, mc.errors, mc.operations,
		mc.messagesSent, mc.chatReplies, mc.alerts, mc.remindersMade,
	)
	return mc
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.requests.Inc()
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.errors.Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.operations.WithLabelValues(operationName).Observe(duration.Seconds())
}

func (mc *MetricsCollector) MessageSent() {
	mc.messagesSent.Inc()
}

func (mc *MetricsCollector) ChatReply(category string) {
	mc.chatReplies.WithLabelValues(category).Inc()
}

func (mc *MetricsCollector) AlertDispatched(delivered bool) {
	label := "false"
	if delivered {
		label = "true"
	}
	mc.alerts.WithLabelValues(label).Inc()
}

func (mc *MetricsCollector) ReminderCreated() {
	mc.remindersMade.Inc()
}

func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.systemStartTime)
}

// Registry exposes the underlying registry, mainly for tests.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the registry in the Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
