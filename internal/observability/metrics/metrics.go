package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okrboard_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "okrboard_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	guardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okrboard_guard_decisions_total",
		Help: "Route guard decisions by kind",
	}, []string{"kind"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okrboard_auth_attempts_total",
		Help: "Login and signup attempts by operation and result",
	}, []string{"operation", "result"})

	dataQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okrboard_data_queries_total",
		Help: "Tenant-scoped data queries by outcome (ok, skipped, error, retried)",
	}, []string{"outcome"})

	dataQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "okrboard_data_query_duration_seconds",
		Help:    "Duration of tenant-scoped data queries including retries",
		Buckets: prometheus.DefBuckets,
	})

	queryCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okrboard_query_cache_total",
		Help: "Query cache lookups by result",
	}, []string{"result"})

	queryCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "okrboard_query_cache_entries",
		Help: "Entries held by the query cache after the last sweep",
	})

	feedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "okrboard_feed_subscribers",
		Help: "Number of connected live feed subscribers",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveGuardDecision counts a route guard outcome.
func ObserveGuardDecision(kind string) {
	guardDecisions.WithLabelValues(kind).Inc()
}

// ObserveAuth records a login or signup attempt.
func ObserveAuth(operation, result string) {
	authAttempts.WithLabelValues(operation, result).Inc()
}

// ObserveQuery records a data query outcome. Skipped queries carry no duration.
func ObserveQuery(outcome string, duration time.Duration) {
	dataQueries.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		dataQueryDuration.Observe(duration.Seconds())
	}
}

// ObserveRetry counts a retried query attempt.
func ObserveRetry() {
	dataQueries.WithLabelValues("retried").Inc()
}

func ObserveCacheHit()  { queryCache.WithLabelValues("hit").Inc() }
func ObserveCacheMiss() { queryCache.WithLabelValues("miss").Inc() }

// SetCacheEntries records the query cache size.
func SetCacheEntries(n int) { queryCacheEntries.Set(float64(n)) }

// FeedSubscribed and FeedUnsubscribed track live feed connections.
func FeedSubscribed()   { feedSubscribers.Inc() }
func FeedUnsubscribed() { feedSubscribers.Dec() }
