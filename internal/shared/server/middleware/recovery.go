package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/shared/metrics"
	"legalreview-backend/internal/shared/server/respond"
	"legalreview-backend/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 error body. When the response has
// already started (an auto-fix event stream, say) the connection is only
// aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			route := c.FullPath()
			metrics.IncPanic(route)
			telemetry.Error("panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"principal":  UserIDFromContext(c),
				"session_id": c.GetString(sessionIDKey),
				"route":      route,
				"method":     c.Request.Method,
				"error":      rec,
				"stack":      string(debug.Stack()),
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
