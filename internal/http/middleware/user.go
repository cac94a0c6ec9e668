package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userContextKey = "userID"

// RequireUser resolves the acting user from the X-User-ID header set by the
// host application. Identity resolution itself is the host's responsibility;
// boardlink only refuses requests that arrive without one.
func RequireUser(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user", "error_description": "X-User-ID header required."})
		return
	}
	c.Set(userContextKey, userID)
	c.Next()
}

// GetUserID extracts the acting user from gin.
func GetUserID(c *gin.Context) (string, bool) {
	value, ok := c.Get(userContextKey)
	if !ok {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}
