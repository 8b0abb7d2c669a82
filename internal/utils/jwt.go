package utils

import (
	"errors"  // Error classification
	"strconv" // Subject encoding
	"time"    // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// ErrExpiredJWT is returned by ParseJWT for well-signed tokens past expiry
var ErrExpiredJWT = errors.New("token expired")

// JWT Claims
type Claims struct {
	AccountID            uint   `json:"account_id"` // Custom claim for account ID
	Role                 string `json:"role"`       // Custom claim for account role
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a signed access token for an account
func GenerateJWT(accountID uint, role, secret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl) // Access tokens are short lived
	// Set token claims
	claims := Claims{
		AccountID: accountID, // Custom claim for account ID
		Role:      role,      // Custom claim for role
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10), // Account ID as subject
			ExpiresAt: jwt.NewNumericDate(expiresAt),             // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),                   // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString([]byte(secret))          // Sign the token with the secret
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredJWT // Signature was fine, token is stale
		}
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.AccountID != 0 {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}
