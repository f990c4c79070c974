package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts API and capture responses by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooklens_http_requests_total",
			Help: "The total number of HTTP requests served",
		},
		[]string{"route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hooklens_http_request_duration_seconds",
			Help:    "The duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Captures tracks inbound webhook calls by method and outcome
	// (stored, not_found, failed).
	Captures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooklens_captures_total",
			Help: "The total number of inbound webhook calls",
		},
		[]string{"method", "result"},
	)

	AppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hooklens_append_duration_seconds",
			Help:    "Time spent persisting a captured request",
			Buckets: prometheus.DefBuckets,
		},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooklens_notifications_total",
			Help: "Notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooklens_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full",
		},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hooklens_notification_queue_depth",
			Help: "Events waiting for a notification worker",
		},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooklens_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)
)
