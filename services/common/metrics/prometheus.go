package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HTTPRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

var NotificationChannelAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_channel_attempts_total",
		Help: "Notification channel attempts by channel and outcome",
	},
	[]string{"channel", "outcome"},
)

var NotificationChannelDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "notification_channel_duration_seconds",
		Help:    "Time spent in a single notification channel attempt",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"channel"},
)

var NotificationDegradedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "notification_degraded_total",
		Help: "Notifications where every real channel failed and the simulated fallback answered",
	},
)

var CacheLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "response_cache_lookups_total",
		Help: "Response cache lookups by key prefix and result",
	},
	[]string{"prefix", "result"},
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPRateLimitRejectionsTotal,
			NotificationChannelAttemptsTotal,
			NotificationChannelDuration,
			NotificationDegradedTotal,
			CacheLookupsTotal,
		)
	})
}
