package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	isGuestKey   = "isGuest"
	sessionIDKey = "sessionId"
)

// Identity resolves the calling principal from X-User-Id (set by an upstream
// gateway) or X-Guest-Id, and stores it in context. Paths in open skip it.
func Identity(open ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		path := c.Request.URL.Path
		for _, p := range open {
			if path == p {
				c.Next()
				return
			}
		}

		if userID := strings.TrimSpace(c.GetHeader("X-User-Id")); userID != "" {
			c.Set(userIDKey, "user:"+userID)
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		c.Set(userIDKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// UserIDFromContext fetches the principal set by Identity.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// SetSessionID tags the request with the review session it touches, for logs.
func SetSessionID(c *gin.Context, id string) {
	c.Set(sessionIDKey, id)
}
