package middleware

import (
	"strconv"
	"time"

	"github.com/devlog-app/backend/internal/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware collects HTTP metrics for Prometheus
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		m.HTTPActiveConnections.WithLabelValues(method, path).Inc()
		defer m.HTTPActiveConnections.WithLabelValues(method, path).Dec()

		startTime := time.Now()

		c.Next()

		duration := time.Since(startTime).Seconds()
		// Numeric status code as string so Grafana queries like status=~"5.." work
		statusStr := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)
	}
}

// RecordRateLimitExceeded records a rate limit violation
func RecordRateLimitExceeded(endpoint, method string) {
	m := metrics.Get()
	m.RateLimitExceededTotal.WithLabelValues(endpoint, method).Inc()
}

// RecordRedisOperation records a Redis operation outcome
func RecordRedisOperation(operation string, err error) {
	m := metrics.Get()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RedisOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSearchQuery records a search query by type
func RecordSearchQuery(searchType string) {
	m := metrics.Get()
	m.SearchQueriesTotal.WithLabelValues(searchType).Inc()
}

// RecordModerationAction records a moderation action
func RecordModerationAction(action string) {
	m := metrics.Get()
	m.ModerationActionsTotal.WithLabelValues(action).Inc()
}
