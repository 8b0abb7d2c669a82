package api

import (
	"net/http" // HTTP status codes

	"crowdfund_system/internal/apperr"  // Typed core errors
	"crowdfund_system/internal/service" // Ledger services

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact money amounts
)

// DonationRequest carries a donation from the caller
type DonationRequest struct {
	CampaignID uint            `json:"campaign_id" binding:"required"` // Target campaign
	Amount     decimal.Decimal `json:"amount"`                         // Amount donated, must be positive
}

// RedeemRequest carries a reward redemption from the caller
type RedeemRequest struct {
	RewardID uint   `json:"reward_id" binding:"required"` // Reward to redeem
	Address  string `json:"address" binding:"required"`   // Shipping address
}

// AmountRequest carries a corrected amount
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"` // New amount
}

// DonateHandler records a donation by the caller
func DonateHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DonationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		donation, err := ledger.RecordDonation(c.Request.Context(), principal(c).AccountID, req.CampaignID, req.Amount)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, donation)
	}
}

// RedeemRewardHandler trades the caller's points for a reward
func RedeemRewardHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RedeemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		redemption, err := ledger.RedeemReward(c.Request.Context(), req.RewardID, principal(c).AccountID, req.Address)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, redemption)
	}
}

// JoinEventHandler registers the caller for an event
func JoinEventHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		participant, err := ledger.JoinEvent(c.Request.Context(), principal(c).AccountID, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, participant)
	}
}

// ParticipantsHandler lists the accounts that joined an event
func ParticipantsHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		participants, err := ledger.Participants(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, participants)
	}
}

// JoinedEventsHandler lists the events an account joined
func JoinedEventsHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if !principal(c).CanActOn(id) {
			writeError(c, apperr.ErrUnauthorized)
			return
		}
		events, err := ledger.JoinedEvents(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// ListRevenuesHandler returns all revenue rows
func ListRevenuesHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		revenues, err := ledger.Revenues(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, revenues)
	}
}

// GetRevenueHandler returns one revenue row
func GetRevenueHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		revenue, err := ledger.RevenueByID(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, revenue)
	}
}

// UpdateRevenueHandler corrects a revenue amount
func UpdateRevenueHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req AmountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		revenue, err := ledger.CorrectRevenue(c.Request.Context(), id, req.Amount)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, revenue)
	}
}

// DeleteRevenueHandler removes a revenue row
func DeleteRevenueHandler(ledger *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := ledger.DeleteRevenue(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Revenue deleted successfully"})
	}
}
