package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/devlog-app/backend/internal/auth"
	"github.com/devlog-app/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// bearerToken extracts the token from the Authorization header or the
// token query parameter (used by the websocket endpoint).
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
		return header
	}
	return c.Query("token")
}

// AuthMiddleware validates the bearer token, checks the session record
// and attaches the principal to the context. Banned accounts fail here
// even when their token is otherwise valid.
func AuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		user, session, err := svc.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrAccountBanned) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Account is banned"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			}
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("token_id", session.TokenID)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the principal when a valid token is
// present and lets anonymous requests through untouched.
func OptionalAuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		user, session, err := svc.ValidateToken(tokenString)
		if err == nil {
			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("token_id", session.TokenID)
		}
		c.Next()
	}
}

// RequireModerator ensures the authenticated user holds moderator or
// admin permissions.
func RequireModerator() gin.HandlerFunc {
	return requireRole(func(r models.Role) bool { return r.CanModerate() }, "moderator access required")
}

// RequireAdmin ensures the authenticated user holds admin permissions.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(func(r models.Role) bool { return r.CanAdministrate() }, "admin access required")
}

func requireRole(allowed func(models.Role) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userInterface, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, ok := userInterface.(*models.User)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_user_context"})
			c.Abort()
			return
		}

		if !allowed(user.Role) {
			c.JSON(http.StatusForbidden, gin.H{"error": message})
			c.Abort()
			return
		}

		c.Next()
	}
}
