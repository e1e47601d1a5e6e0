package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cjdquick/putaway-service/pkg/metrics"
)

// MetricsMiddleware creates middleware that records HTTP metrics
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return MetricsMiddlewareWithConfig(m, DefaultMetricsConfig())
}

// MetricsEndpoint returns a handler for the /metrics endpoint
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// MetricsConfig holds configuration for metrics middleware
type MetricsConfig struct {
	// ExcludePaths lists paths to exclude from metrics
	ExcludePaths []string
}

// DefaultMetricsConfig returns a default metrics configuration
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		ExcludePaths: []string{"/metrics", "/health", "/ready"},
	}
}

// MetricsMiddlewareWithConfig creates metrics middleware with custom configuration
func MetricsMiddlewareWithConfig(m *metrics.Metrics, config *MetricsConfig) gin.HandlerFunc {
	excludeMap := make(map[string]bool)
	for _, path := range config.ExcludePaths {
		excludeMap[path] = true
	}

	return func(c *gin.Context) {
		if excludeMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath() // route pattern, not actual path

		if path == "" {
			path = c.Request.URL.Path
		}

		m.RecordHTTPRequest(method, path, status, duration)
	}
}
