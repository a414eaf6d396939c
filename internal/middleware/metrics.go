package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/klasnova/klasnova-api/internal/service"
)

// Metrics observes every request on the prometheus registry. The route
// template is used as the path label so per-exam and per-submission URLs
// aggregate into one series instead of exploding cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/metrics" {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
