package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the correlation id of a request
const RequestIDHeader = "X-Request-ID"

// RequestLogger attaches a request-scoped logger to the context and logs
// every completed request.
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		lgr := base.With().Str("requestId", requestID).Logger()
		c.Request = c.Request.WithContext(lgr.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		event := lgr.Info()
		if status >= 500 {
			event = lgr.Error()
		} else if status >= 400 {
			event = lgr.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("clientIp", c.ClientIP()).
			Msg("Request handled")
	}
}
