package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route, method and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galatea_http_requests_total",
		Help: "Total HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	// HTTPLatency records request latency by route and method.
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "galatea_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Swipes counts recorded swipe outcomes by decision and result.
	Swipes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galatea_swipes_total",
		Help: "Swipe decisions by decision and outcome",
	}, []string{"decision", "outcome"})

	// Messages counts persisted messages by author kind.
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galatea_messages_total",
		Help: "Messages persisted by author kind",
	}, []string{"author"})

	// CompletionLatency records completion-service round trips.
	CompletionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "galatea_completion_duration_seconds",
		Help:    "Completion service latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"outcome"})

	// CacheErrors counts Redis failures that were tolerated.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galatea_cache_errors_total",
		Help: "Redis errors by operation",
	}, []string{"operation"})
)

// ObserveCompletion records one completion call.
func ObserveCompletion(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CompletionLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// Middleware records request counts and latency using the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
