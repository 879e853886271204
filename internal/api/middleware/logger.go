package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mixshift/sqp-importer/internal/logger"
)

// LoggerMiddleware returns a Gin middleware that injects a request-scoped logger.
// Parameters:
//   - log: base logger to enrich with request fields.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := uuid.New().String()

		reqLog := log.WithFields(logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		ctx := reqLog.WithContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", reqLog)

		c.Header("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		reqLog.WithFields(logger.Fields{
			logger.FieldStatus:     c.Writer.Status(),
			logger.FieldDurationMs: latency.Milliseconds(),
		}).Infof("%s %s completed", c.Request.Method, path)
	}
}

// GetLogger extracts logger from Gin context or request context.
// Parameters:
//   - c: Gin request context.
// Returns:
//   - *logger.Logger: request-scoped logger or default logger.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, exists := c.Get("logger"); exists {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}
