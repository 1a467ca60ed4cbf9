package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dagflow/observability"
)

// Metrics records the count and duration of every request by route
// template. Unmatched paths are recorded as "unmatched".
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
