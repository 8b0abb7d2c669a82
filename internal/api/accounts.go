package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache lifetime

	"crowdfund_system/internal/apperr"  // Typed core errors
	"crowdfund_system/internal/domain"  // Importing domain models
	"crowdfund_system/internal/service" // Account services
	"crowdfund_system/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// listCacheTTL bounds how stale a cached account page can be
const listCacheTTL = 30 * time.Second

// accountPage is one page of the admin account listing
type accountPage struct {
	Accounts   []domain.Account `json:"accounts"`    // List of accounts
	Page       int              `json:"page"`        // Current page
	PageSize   int              `json:"page_size"`   // Page size
	Total      int64            `json:"total"`       // Total number of accounts
	TotalPages int              `json:"total_pages"` // Total pages
	Cached     bool             `json:"cached"`      // Served from cache
}

// CreateAccountRequest carries an account created by an Admin
type CreateAccountRequest struct {
	Email     string `json:"email" binding:"required,email"`    // Login email
	Password  string `json:"password" binding:"required,min=6"` // Password
	FirstName string `json:"first_name" binding:"required"`     // Given name
	LastName  string `json:"last_name" binding:"required"`      // Family name
	Phone     string `json:"phone"`                             // Phone number
	Image     string `json:"image"`                             // Profile image
	Role      string `json:"role"`                              // User or Admin, default User
}

// UpdateAccountRequest carries optional account changes
type UpdateAccountRequest struct {
	Email     *string `json:"email"`      // New email
	Password  *string `json:"password"`   // New password
	FirstName *string `json:"first_name"` // Given name
	LastName  *string `json:"last_name"`  // Family name
	Phone     *string `json:"phone"`      // Phone number
	Image     *string `json:"image"`      // Profile image
	Role      *string `json:"role"`       // Admin only
	Status    *string `json:"status"`     // Admin only
}

// PointsRequest carries a signed point delta
type PointsRequest struct {
	Delta int64 `json:"delta" binding:"required"` // Points to add, negative to deduct
}

// ListAccountsHandler returns accounts page by page
func ListAccountsHandler(accounts *service.AccountService, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pageParams(c)
		// Create a cache key based on pagination parameters
		cacheKey := "admin:accounts:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached accountPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}
		list, total, err := accounts.List(ctx, page, pageSize)
		if err != nil {
			writeError(c, err)
			return
		}
		resp := accountPage{
			Accounts:   list,                                   // List of accounts
			Page:       page,                                   // Current page
			PageSize:   pageSize,                               // Page size
			Total:      total,                                  // Total number of accounts
			TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, listCacheTTL) // Cache the response
		c.JSON(http.StatusOK, resp)
	}
}

// GetAccountHandler returns one account to its owner or an Admin
func GetAccountHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if !principal(c).CanActOn(id) {
			writeError(c, apperr.ErrUnauthorized)
			return
		}
		account, err := accounts.GetByID(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

// CreateAccountHandler lets an Admin create a verified account
func CreateAccountHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		account, err := accounts.Create(c.Request.Context(), service.Profile{
			Email:     req.Email,     // Login email
			Password:  req.Password,  // Plain password
			FirstName: req.FirstName, // Given name
			LastName:  req.LastName,  // Family name
			Phone:     req.Phone,     // Phone number
			Image:     req.Image,     // Profile image
		}, req.Role)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

// UpdateAccountHandler applies profile changes
func UpdateAccountHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req UpdateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		account, err := accounts.Update(c.Request.Context(), principal(c), id, service.AccountUpdate(req))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

// DeleteAccountHandler removes an account and everything it owns
func DeleteAccountHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := accounts.Delete(c.Request.Context(), principal(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
	}
}

// UpdatePointsHandler adjusts an account's point balance
func UpdatePointsHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req PointsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		balance, err := accounts.UpdatePoints(c.Request.Context(), id, req.Delta)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"account_id": id, "points": balance})
	}
}

// ListRefreshTokensHandler returns an account's refresh tokens
func ListRefreshTokensHandler(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		list, err := tokens.ListTokens(c.Request.Context(), principal(c), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
