package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Use the route template so blob ids do not explode label cardinality
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(c.Request.Method, path, status, time.Since(start))
	}
}

// Timer measures a binding call
type Timer struct {
	start   time.Time
	metrics *Metrics
	binding string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, binding string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		binding: binding,
	}
}

// Stop stops the timer and records the call
func (t *Timer) Stop(status string) {
	t.metrics.RecordCall(t.binding, status, time.Since(t.start))
}
