package api

import (
	"net/http" // HTTP status codes
	"time"     // Cookie lifetime

	"crowdfund_system/internal/domain"  // Importing domain models
	"crowdfund_system/internal/service" // Token and account services

	"github.com/gin-gonic/gin" // Gin web framework
)

// RefreshCookie is the cookie carrying the raw refresh token
const RefreshCookie = "refreshToken"

// CookieConfig controls the refresh token cookie
type CookieConfig struct {
	TTL    time.Duration // Cookie lifetime, matches the refresh token
	Secure bool          // HTTPS only
}

// Request struct for login
type AuthenticateRequest struct {
	Email    string `json:"email" binding:"required,email"` // Email must be provided
	Password string `json:"password" binding:"required"`    // Password must be provided
}

// TokenRequest optionally carries a refresh token in the body
type TokenRequest struct {
	Token string `json:"token"` // Falls back to the cookie when empty
}

// RegisterRequest carries a new member's details
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`                       // Login email
	Password        string `json:"password" binding:"required,min=6"`                    // Password
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"` // Must match
	FirstName       string `json:"first_name" binding:"required"`                        // Given name
	LastName        string `json:"last_name" binding:"required"`                         // Family name
	Phone           string `json:"phone"`                                                // Phone number
	Image           string `json:"image"`                                                // Profile image
	AcceptTerms     bool   `json:"accept_terms" binding:"required"`                      // Terms must be accepted
}

// EmailRequest carries only an email address
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"` // Email must be provided
}

// ResetPasswordRequest carries a reset token and the new password
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`                             // Reset token
	Password        string `json:"password" binding:"required,min=6"`                    // New password
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"` // Must match
}

// Response struct for authentication
type AuthResponse struct {
	Account   domain.Account `json:"account"`    // Authenticated account
	JWTToken  string         `json:"jwt_token"`  // Access token
	ExpiresAt time.Time      `json:"expires_at"` // Access token expiry
}

// setRefreshCookie stores the raw refresh token in an http-only cookie
func setRefreshCookie(c *gin.Context, cfg CookieConfig, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookie, token, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
}

// refreshToken reads the token from the body or the cookie
func refreshToken(c *gin.Context) string {
	var req TokenRequest
	_ = c.ShouldBindJSON(&req) // Body is optional
	if req.Token != "" {
		return req.Token
	}
	cookie, _ := c.Cookie(RefreshCookie)
	return cookie
}

func authResponse(c *gin.Context, cfg CookieConfig, res *service.AuthResult) {
	setRefreshCookie(c, cfg, res.RefreshToken)
	c.JSON(http.StatusOK, AuthResponse{
		Account:   res.Account,         // Account details
		JWTToken:  res.AccessToken,     // Access token
		ExpiresAt: res.AccessExpiresAt, // Access token expiry
	})
}

// AuthenticateHandler handles user login and issues a token pair
func AuthenticateHandler(tokens *service.TokenService, cfg CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AuthenticateRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		res, err := tokens.Authenticate(c.Request.Context(), req.Email, req.Password, c.ClientIP())
		if err != nil {
			writeError(c, err)
			return
		}
		authResponse(c, cfg, res)
	}
}

// RefreshTokenHandler rotates a refresh token
func RefreshTokenHandler(tokens *service.TokenService, cfg CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := refreshToken(c)
		if token == "" {
			badRequest(c, "Token is required")
			return
		}
		res, err := tokens.Refresh(c.Request.Context(), token, c.ClientIP())
		if err != nil {
			writeError(c, err)
			return
		}
		authResponse(c, cfg, res)
	}
}

// RevokeTokenHandler revokes a refresh token owned by the caller
func RevokeTokenHandler(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := refreshToken(c)
		if token == "" {
			badRequest(c, "Token is required")
			return
		}
		if err := tokens.Revoke(c.Request.Context(), token, principal(c), c.ClientIP()); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Token revoked"})
	}
}

// RegisterHandler creates an unverified account and emails a verification link
func RegisterHandler(accounts *service.AccountService, origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		_, err := accounts.Register(c.Request.Context(), service.Profile{
			Email:     req.Email,     // Login email
			Password:  req.Password,  // Plain password, hashed by the service
			FirstName: req.FirstName, // Given name
			LastName:  req.LastName,  // Family name
			Phone:     req.Phone,     // Phone number
			Image:     req.Image,     // Profile image
		}, origin)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Registration successful, please check your email for verification instructions"})
	}
}

// VerifyEmailHandler confirms an account's email
func VerifyEmailHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
			badRequest(c, "Token is required")
			return
		}
		if err := accounts.VerifyEmail(c.Request.Context(), req.Token); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Verification successful, you can now login"})
	}
}

// ForgotPasswordHandler emails a reset link; unknown emails get the same answer
func ForgotPasswordHandler(accounts *service.AccountService, origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if err := accounts.ForgotPassword(c.Request.Context(), req.Email, origin); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Please check your email for password reset instructions"})
	}
}

// ValidateResetTokenHandler checks a reset token before the form is shown
func ValidateResetTokenHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
			badRequest(c, "Token is required")
			return
		}
		if err := accounts.ValidateResetToken(c.Request.Context(), req.Token); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Token is valid"})
	}
}

// ResetPasswordHandler sets a new password from a reset token
func ResetPasswordHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if err := accounts.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successful, you can now login"})
	}
}
