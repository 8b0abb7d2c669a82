package middleware

import (
	"time" // Request timing

	"crowdfund_system/internal/metrics" // Prometheus counters

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request ids
	"github.com/sirupsen/logrus" // Logging library
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, reusing the caller's when given
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Observe records metrics and an access log line for every request
func Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched" // Keep label cardinality bounded
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), elapsed)
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("requestID"), // Request id
			"method":     c.Request.Method,         // HTTP method
			"path":       path,                     // Route template
			"status":     c.Writer.Status(),        // Response status
			"elapsed_ms": elapsed.Milliseconds(),   // Latency
		}).Debug("Request handled")
	}
}
