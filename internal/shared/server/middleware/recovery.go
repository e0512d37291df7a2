package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"ocrdocs-backend/internal/shared/server/respond"
	"ocrdocs-backend/internal/shared/telemetry"
)

// Recovery converts a handler panic into a 500 internal_error envelope and
// logs the stack with the request id. gin's own panic output is discarded.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Error("http.panic", map[string]any{
			"request_id": RequestIDFromContext(c),
			"route":      c.FullPath(),
			"panic":      rec,
			"stack":      string(debug.Stack()),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
	})
}
