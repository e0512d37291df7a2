package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ocrdocs-backend/internal/shared/telemetry"
)

// quietPaths are polled by infrastructure and not logged.
var quietPaths = map[string]bool{
	"/metrics":    true,
	"/api/health": true,
}

// Logging writes one request.complete line per request: info for success,
// warn for client errors, error for server errors. Preflights and health
// and metrics polling are skipped.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
			"document_id": c.Value("documentId"),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
