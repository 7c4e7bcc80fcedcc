package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAuthor lets through users that have an author profile. Reads are
// not gated.
func RequireAuthor(isAuthor func(userID int) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		userID, ok := CurrentUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		if !isAuthor(userID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}

		c.Next()
	}
}
