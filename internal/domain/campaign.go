package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money amounts
)

// Campaign statuses
const (
	CampaignActive = "Active" // Accepting donations
	CampaignClosed = "Closed" // No longer accepting donations
)

// Withdraw statuses
const (
	WithdrawPending  = "Pending"  // Awaiting payout
	WithdrawApproved = "Approved" // Paid out
)

// Category Model
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`                      // Primary key
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"` // Unique category name
}

// Campaign Model
type Campaign struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                                   // Primary key
	AccountID   uint            `gorm:"index;not null" json:"account_id"`                       // Owner
	Account     *Account        `gorm:"constraint:OnDelete:CASCADE" json:"-"`                   // Cascade with the owner
	CategoryID  *uint           `gorm:"index" json:"category_id"`                               // Optional category
	Category    *Category       `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"` // Nulled when the category goes away
	Title       string          `gorm:"size:200;not null" json:"title"`                         // Title
	Description string          `gorm:"type:text" json:"description"`                           // Long description
	Goal        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"goal"`                // Funding goal
	Raised      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"raised"`    // Sum of donations
	Withdrawn   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"withdrawn"` // Sum of withdraw requests
	Status      string          `gorm:"size:16;not null;default:Active" json:"status"`          // Active or Closed
	Image       string          `gorm:"size:255;default:default-image.png" json:"image"`        // Cover image file name
	CreatedAt   time.Time       `json:"created_at"`                                             // Creation time
	UpdatedAt   time.Time       `json:"updated_at"`                                             // Last update time
}

// Available returns raised funds not yet withdrawn
func (c *Campaign) Available() decimal.Decimal {
	return c.Raised.Sub(c.Withdrawn)
}

// Donation Model
type Donation struct {
	ID         uint            `gorm:"primaryKey" json:"id"`                      // Primary key
	AccountID  uint            `gorm:"index;not null" json:"account_id"`          // Donor
	Account    *Account        `gorm:"constraint:OnDelete:CASCADE" json:"-"`      // Cascade with the donor
	CampaignID uint            `gorm:"index;not null" json:"campaign_id"`         // Target campaign
	Campaign   *Campaign       `gorm:"constraint:OnDelete:CASCADE" json:"-"`      // Cascade with the campaign
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"` // Donated amount
	CreatedAt  time.Time       `json:"created_at"`                                // Donation time
}

// Revenue Model. Derived from exactly one donation.
type Revenue struct {
	ID         uint            `gorm:"primaryKey" json:"id"`                                  // Primary key
	DonationID uint            `gorm:"uniqueIndex;not null" json:"donation_id"`               // Source donation
	Donation   *Donation       `gorm:"constraint:OnDelete:CASCADE" json:"donation,omitempty"` // Cascade with the donation
	AccountID  uint            `gorm:"index;not null" json:"account_id"`                      // Donor
	Account    *Account        `gorm:"constraint:OnDelete:CASCADE" json:"-"`                  // Cascade with the donor
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`             // Platform fee
	CreatedAt  time.Time       `json:"created_at"`                                            // Creation time
	UpdatedAt  time.Time       `json:"updated_at"`                                            // Last correction time
}

// Withdraw Model
type Withdraw struct {
	ID         uint            `gorm:"primaryKey" json:"id"`                           // Primary key
	AccountID  uint            `gorm:"index;not null" json:"account_id"`               // Requesting owner
	Account    *Account        `gorm:"constraint:OnDelete:CASCADE" json:"-"`           // Cascade with the owner
	CampaignID uint            `gorm:"index;not null" json:"campaign_id"`              // Source campaign
	Campaign   *Campaign       `gorm:"constraint:OnDelete:CASCADE" json:"-"`           // Cascade with the campaign
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`      // Requested amount
	Status     string          `gorm:"size:16;not null;default:Pending" json:"status"` // Pending or Approved
	CreatedAt  time.Time       `json:"created_at"`                                     // Request time
}

// Comment Model
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                 // Primary key
	AccountID  uint      `gorm:"index;not null" json:"account_id"`     // Author
	Account    *Account  `gorm:"constraint:OnDelete:CASCADE" json:"-"` // Cascade with the author
	CampaignID uint      `gorm:"index;not null" json:"campaign_id"`    // Campaign
	Campaign   *Campaign `gorm:"constraint:OnDelete:CASCADE" json:"-"` // Cascade with the campaign
	Body       string    `gorm:"type:text;not null" json:"body"`       // Comment text
	CreatedAt  time.Time `json:"created_at"`                           // Creation time
}

// Like Model. One per account and campaign.
type Like struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                                        // Primary key
	AccountID  uint      `gorm:"uniqueIndex:idx_like_pair;not null" json:"account_id"`        // Liker
	Account    *Account  `gorm:"constraint:OnDelete:CASCADE" json:"-"`                        // Cascade with the liker
	CampaignID uint      `gorm:"uniqueIndex:idx_like_pair;index;not null" json:"campaign_id"` // Campaign
	Campaign   *Campaign `gorm:"constraint:OnDelete:CASCADE" json:"-"`                        // Cascade with the campaign
	CreatedAt  time.Time `json:"created_at"`                                                  // Creation time
}
