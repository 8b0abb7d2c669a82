package domain

import "time" // Timestamps

// Account roles
const (
	RoleUser  = "User"  // Regular member
	RoleAdmin = "Admin" // Platform administrator
)

// Account lifecycle states
const (
	StatusUnverified = "Unverified" // Registered, email not yet confirmed
	StatusActive     = "Active"     // Email confirmed, may authenticate
	StatusDisabled   = "Disabled"   // Blocked by an administrator
)

// DefaultImage is recorded when no profile image is supplied
const DefaultImage = "default-image.png"

// Account Model
type Account struct {
	ID                uint       `gorm:"primaryKey" json:"id"`                                                   // Primary key
	Email             string     `gorm:"size:191;uniqueIndex;not null" json:"email"`                             // Unique login email
	PasswordHash      string     `gorm:"not null" json:"-"`                                                      // bcrypt hash
	FirstName         string     `gorm:"size:100" json:"first_name"`                                             // Given name
	LastName          string     `gorm:"size:100" json:"last_name"`                                              // Family name
	Phone             string     `gorm:"size:32" json:"phone"`                                                   // Phone number
	Image             string     `gorm:"size:255;default:default-image.png" json:"image"`                        // Profile image file name
	Role              string     `gorm:"size:16;not null;default:User" json:"role"`                              // User or Admin
	Status            string     `gorm:"size:16;not null;default:Unverified" json:"status"`                      // Unverified, Active or Disabled
	Points            int64      `gorm:"not null;default:0;check:chk_accounts_points,points >= 0" json:"points"` // Point balance, never negative
	VerificationToken *string    `gorm:"size:96;uniqueIndex" json:"-"`                                           // Pending email verification token
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`                                                  // When the email was confirmed
	ResetToken        *string    `gorm:"size:96;uniqueIndex" json:"-"`                                           // Pending password reset token
	ResetTokenExpires *time.Time `json:"-"`                                                                      // Reset token expiry
	PasswordResetAt   *time.Time `json:"password_reset_at,omitempty"`                                            // Last successful reset
	CreatedAt         time.Time  `json:"created_at"`                                                             // Creation time
	UpdatedAt         time.Time  `json:"updated_at"`                                                             // Last update time
}

// IsVerified reports whether the account confirmed its email
func (a *Account) IsVerified() bool {
	return a.Status != StatusUnverified
}

// IsAdmin reports whether the account holds the Admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
