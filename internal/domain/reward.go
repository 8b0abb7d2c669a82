package domain

import "time" // Timestamps

// Reward statuses
const (
	RewardActive   = "Active"   // Redeemable
	RewardInactive = "Inactive" // Hidden from redemption
)

// Reward Model
type Reward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                                                        // Primary key
	AccountID   uint      `gorm:"index;not null" json:"account_id"`                                            // Admin that manages it
	Account     *Account  `gorm:"constraint:OnDelete:CASCADE" json:"-"`                                        // Cascade with the owner
	Name        string    `gorm:"size:200;not null" json:"name"`                                               // Display name
	Description string    `gorm:"type:text" json:"description"`                                                // Description
	PointCost   int64     `gorm:"not null;check:chk_rewards_point_cost,point_cost > 0" json:"point_cost"`      // Points needed
	Quantity    int64     `gorm:"not null;default:0;check:chk_rewards_quantity,quantity >= 0" json:"quantity"` // Remaining stock
	Status      string    `gorm:"size:16;not null;default:Active" json:"status"`                               // Active or Inactive
	Image       string    `gorm:"size:255;default:default-image.png" json:"image"`                             // Image file name
	CreatedAt   time.Time `json:"created_at"`                                                                  // Creation time
	UpdatedAt   time.Time `json:"updated_at"`                                                                  // Last update time
}

// RedeemReward Model. Records one redemption.
type RedeemReward struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                 // Primary key
	AccountID  uint      `gorm:"index;not null" json:"account_id"`     // Redeeming account
	Account    *Account  `gorm:"constraint:OnDelete:CASCADE" json:"-"` // Cascade with the account
	RewardID   uint      `gorm:"index;not null" json:"reward_id"`      // Redeemed reward
	Reward     *Reward   `gorm:"constraint:OnDelete:CASCADE" json:"-"` // Cascade with the reward
	PointsPaid int64     `gorm:"not null" json:"points_paid"`          // Cost at redemption time
	Address    string    `gorm:"size:255" json:"address"`              // Shipping address
	CreatedAt  time.Time `json:"created_at"`                           // Redemption time
}
