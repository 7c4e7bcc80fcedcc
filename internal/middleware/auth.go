package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
)

const currentUserKey = "current_user_id"

// Auth accepts an HS256 access token in the Authorization header, the way
// SimpleJWT does, and answers with its error bodies otherwise.
func Auth(secret string, userExists func(userID int) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		claims, err := security.ParseToken(strings.TrimPrefix(authHeader, "Bearer "), secret, security.TokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		if !userExists(claims.UserID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not found", "code": "user_not_found"})
			return
		}

		c.Set(currentUserKey, claims.UserID)
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
