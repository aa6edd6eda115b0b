package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marvel-rag/internal/observability"
)

// Trace attaches a trace id to the request context, echoes it in the
// response and logs the finished request.
func Trace(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		traceID := observability.ResolveTraceID(c.GetHeader(observability.TraceHeader))
		c.Request = c.Request.WithContext(observability.WithTraceID(c.Request.Context(), traceID))
		c.Header(observability.TraceHeader, traceID)

		c.Next()

		logger.Info("http request",
			zap.String("trace_id", traceID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
