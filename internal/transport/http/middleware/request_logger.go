package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger puts a request-scoped logger carrying request_id into the
// request context and logs each completed request.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		log := base.With(zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(ctxzap.ToContext(c.Request.Context(), log))
		log.Debug("request started", zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		// the handler chain may have enriched the logger, e.g. with user_id
		log = ctxzap.Extract(c.Request.Context())
		if len(c.Errors) > 0 {
			log.Warn("request finished", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("request finished", fields...)
	}
}
