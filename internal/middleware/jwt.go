package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"crowdfund_system/internal/apperr" // Typed core errors
	"crowdfund_system/internal/utils"  // JWT claims

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by JWTAuthMiddleware
const (
	AccountIDKey = "accountID" // uint
	RoleKey      = "role"      // string
)

// AccessVerifier checks access tokens without touching storage
type AccessVerifier interface {
	VerifyAccess(rawJWT string) (*utils.Claims, error)
}

// JWTAuthMiddleware validates JWT tokens and extracts account information
func JWTAuthMiddleware(verifier AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := verifier.VerifyAccess(tokenStr)        // Verify signature and expiry
		if err != nil {
			// Expired and invalid tokens both end the request
			code := "INVALID_ACCESS_TOKEN"
			if apperr.IsKind(err, apperr.KindExpired) {
				code = "ACCESS_TOKEN_EXPIRED"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": code})
			return
		}
		c.Set(AccountIDKey, claims.AccountID) // Store accountID in context
		c.Set(RoleKey, claims.Role)           // Store role in context
		c.Next()                              // Proceed to the next handler
	}
}
