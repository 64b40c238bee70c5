package middleware

import (
  "time"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/skillforge-backend/internal/logger"
)

// RequestLogger emits one structured line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
  reqLog := log.With("component", "http")
  return func(c *gin.Context) {
    start := time.Now()
    c.Next()
    reqLog.Info("Request handled",
      "method", c.Request.Method,
      "path", c.FullPath(),
      "status", c.Writer.Status(),
      "duration_ms", time.Since(start).Milliseconds(),
    )
  }
}
