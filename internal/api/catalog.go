package api

import (
	"net/http" // HTTP status codes
	"time"     // Event dates

	"crowdfund_system/internal/service" // Catalog services

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact money amounts
)

// CategoryRequest carries a category name
type CategoryRequest struct {
	Name string `json:"name" binding:"required"` // Unique name
}

// CampaignRequest carries a new campaign
type CampaignRequest struct {
	Title       string          `json:"title" binding:"required"` // Title
	Description string          `json:"description"`              // Long description
	Goal        decimal.Decimal `json:"goal"`                     // Funding goal, must be positive
	CategoryID  *uint           `json:"category_id"`              // Optional category
	Image       string          `json:"image"`                    // Cover image
}

// EventRequest carries a new event
type EventRequest struct {
	Name        string    `json:"name" binding:"required"` // Name
	Description string    `json:"description"`             // Description
	Date        time.Time `json:"date" binding:"required"` // When, RFC 3339
	Location    string    `json:"location"`                // Where
	Image       string    `json:"image"`                   // Image
}

// RewardRequest carries a new reward
type RewardRequest struct {
	Name        string `json:"name" binding:"required"`       // Name
	Description string `json:"description"`                   // Description
	PointCost   int64  `json:"point_cost" binding:"required"` // Points per unit
	Quantity    int64  `json:"quantity"`                      // Units in stock
	Image       string `json:"image"`                         // Image
}

// UpdateRewardRequest carries optional reward changes
type UpdateRewardRequest struct {
	Name        *string `json:"name"`        // Name
	Description *string `json:"description"` // Description
	PointCost   *int64  `json:"point_cost"`  // Points per unit
	Quantity    *int64  `json:"quantity"`    // Units in stock
	Status      *string `json:"status"`      // Active or Inactive
	Image       *string `json:"image"`       // Image
}

// CommentRequest carries a comment body
type CommentRequest struct {
	Body string `json:"body" binding:"required"` // Comment text
}

// WithdrawRequest carries a withdraw amount
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"` // Amount, must be positive
}

// ListCategoriesHandler returns all categories
func ListCategoriesHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := catalog.Categories(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

// CreateCategoryHandler adds a category
func CreateCategoryHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		category, err := catalog.CreateCategory(c.Request.Context(), req.Name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

// DeleteCategoryHandler removes a category
func DeleteCategoryHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := catalog.DeleteCategory(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
	}
}

// ListCampaignsHandler returns all campaigns
func ListCampaignsHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaigns, err := catalog.Campaigns(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

// GetCampaignHandler returns one campaign
func GetCampaignHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		campaign, err := catalog.Campaign(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

// CreateCampaignHandler opens a campaign owned by the caller
func CreateCampaignHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CampaignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		campaign, err := catalog.CreateCampaign(c.Request.Context(), principal(c), service.CampaignInput(req))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, campaign)
	}
}

// DeleteCampaignHandler removes a campaign owned by the caller
func DeleteCampaignHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := catalog.DeleteCampaign(c.Request.Context(), principal(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted successfully"})
	}
}

// ListCommentsHandler returns a campaign's comments
func ListCommentsHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		comments, err := catalog.Comments(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, comments)
	}
}

// AddCommentHandler posts a comment on a campaign
func AddCommentHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		comment, err := catalog.AddComment(c.Request.Context(), principal(c), id, req.Body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, comment)
	}
}

// LikeHandler likes a campaign once per account
func LikeHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		like, created, err := catalog.Like(c.Request.Context(), principal(c), id)
		if err != nil {
			writeError(c, err)
			return
		}
		status := http.StatusOK // Already liked
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, like)
	}
}

// WithdrawHandler requests a payout from a campaign owned by the caller
func WithdrawHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req WithdrawRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		withdraw, err := catalog.RequestWithdraw(c.Request.Context(), principal(c), id, req.Amount)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, withdraw)
	}
}

// ListEventsHandler returns all events
func ListEventsHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := catalog.Events(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// CreateEventHandler schedules an event organized by the caller
func CreateEventHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		event, err := catalog.CreateEvent(c.Request.Context(), principal(c), service.EventInput(req))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, event)
	}
}

// DeleteEventHandler removes an event
func DeleteEventHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := catalog.DeleteEvent(c.Request.Context(), principal(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
	}
}

// ListRewardsHandler returns all rewards
func ListRewardsHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rewards, err := catalog.Rewards(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rewards)
	}
}

// CreateRewardHandler adds a reward
func CreateRewardHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RewardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		reward, err := catalog.CreateReward(c.Request.Context(), principal(c), service.RewardInput(req))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, reward)
	}
}

// UpdateRewardHandler changes a reward
func UpdateRewardHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req UpdateRewardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		reward, err := catalog.UpdateReward(c.Request.Context(), principal(c), id, service.RewardUpdate(req))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, reward)
	}
}

// DeleteRewardHandler removes a reward
func DeleteRewardHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := catalog.DeleteReward(c.Request.Context(), principal(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Reward deleted successfully"})
	}
}
