package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/taskmaster-backend/internal/observability"
)

// Metrics records request latency per route template. SSE streams and the
// metrics endpoint itself only count towards in-flight requests.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		switch {
		case route == "":
			route = "unmatched"
		case route == "/metrics", strings.HasSuffix(route, "/sse/stream"):
			return
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
