package api

import (
	"strconv" // String conversion

	"crowdfund_system/internal/middleware" // Context keys
	"crowdfund_system/internal/service"    // Requester identity

	"github.com/gin-gonic/gin" // Gin web framework
)

// principal returns the authenticated caller set by JWTAuthMiddleware
func principal(c *gin.Context) service.Principal {
	return service.Principal{
		AccountID: c.GetUint(middleware.AccountIDKey), // Caller account
		Role:      c.GetString(middleware.RoleKey),    // Caller role
	}
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// pageParams reads page and page_size query values with defaults
func pageParams(c *gin.Context) (int, int) {
	page := 1      // Default page number
	pageSize := 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}
