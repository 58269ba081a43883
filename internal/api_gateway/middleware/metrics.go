package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics observes request latency labelled by the route template, so
// /api/v1/bols/:id is one series regardless of the id
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.HTTPDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
