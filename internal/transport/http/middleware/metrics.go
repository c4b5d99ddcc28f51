package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"agentic-rag/internal/metrics"
)

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.ObserveHTTP(path, time.Since(start))
	}
}
