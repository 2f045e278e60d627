package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"restoreview/internal/pkg/response"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id, logs every request and turns panics
// into a 500 envelope.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Writer.Header().Set(requestIDHeader, reqID)

		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("panic recovered",
					zap.String("request_id", reqID),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("panic", fmt.Sprint(recovered)),
					zap.ByteString("stack", debug.Stack()),
				)
				response.Error(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				c.Abort()
			}
			logRequest(logger, c, reqID, start)
		}()

		c.Next()
	}
}

func logRequest(logger *zap.Logger, c *gin.Context, reqID string, start time.Time) {
	status := c.Writer.Status()
	fields := []zap.Field{
		zap.String("request_id", reqID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("client_ip", c.ClientIP()),
	}
	if uid := c.GetInt64("user_id"); uid != 0 {
		fields = append(fields, zap.Int64("user_id", uid), zap.String("role", c.GetString("role")))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.String("errors", c.Errors.String()))
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", fields...)
	case status >= http.StatusBadRequest:
		logger.Warn("request rejected", fields...)
	default:
		logger.Info("request", fields...)
	}
}
