package middleware

import (
	"net/http"
	"strings"

	"quizmaster/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys populated for authenticated requests.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextBranch   = "branch"
)

// RequireAuth verifies the Bearer token and exposes its claims to handlers.
func RequireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_TOKEN",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextBranch, claims.Branch)
		c.Next()
	}
}
