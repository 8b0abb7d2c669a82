package middleware

import (
	"net/http" // HTTP status codes

	"crowdfund_system/internal/domain" // Role names

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware allows only access tokens that assert the Admin role.
// It must run after JWTAuthMiddleware.
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(AccountIDKey); !exists {
			// If not authenticated, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if the role claim is admin
		if c.GetString(RoleKey) != domain.RoleAdmin {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
