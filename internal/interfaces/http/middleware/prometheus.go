package middleware

import (
	"strconv"
	"time"

	"github.com/restaurant-platform/backend/internal/infrastructure/metrics"
	"github.com/gin-gonic/gin"
)

// Prometheus records request latency per method, route template and status.
// The route template keeps cardinality bounded; requests that match no route
// share one bucket.
func Prometheus(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestSeconds.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
