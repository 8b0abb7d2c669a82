package domain

import "time" // Timestamps

// RefreshToken Model. Only the SHA-256 hash of the raw token is stored.
// ReplacedByID points at the token minted when this one was rotated, so a
// rotation lineage can be walked by id.
type RefreshToken struct {
	ID            uint          `gorm:"primaryKey" json:"id"`                                          // Primary key
	AccountID     uint          `gorm:"index;not null" json:"account_id"`                              // Owner
	Account       *Account      `gorm:"constraint:OnDelete:CASCADE" json:"-"`                          // Cascade with the owner
	TokenHash     string        `gorm:"size:64;uniqueIndex;not null" json:"-"`                         // SHA-256 hex of the raw token
	ExpiresAt     time.Time     `gorm:"index;not null" json:"expires_at"`                              // Expiry
	CreatedAt     time.Time     `json:"created_at"`                                                    // Issue time
	CreatedByIP   string        `gorm:"size:64" json:"created_by_ip"`                                  // Client IP at issue
	RevokedAt     *time.Time    `gorm:"index" json:"revoked_at,omitempty"`                             // Revocation time
	RevokedByIP   string        `gorm:"size:64" json:"revoked_by_ip,omitempty"`                        // Client IP at revocation
	ReasonRevoked string        `gorm:"size:64" json:"reason_revoked,omitempty"`                       // rotated, revoked, reuse, ...
	ReplacedByID  *uint         `gorm:"index" json:"replaced_by_id,omitempty"`                         // Successor in the lineage
	ReplacedBy    *RefreshToken `gorm:"foreignKey:ReplacedByID;constraint:OnDelete:SET NULL" json:"-"` // Successor row
}

// Revocation reasons
const (
	ReasonRotated       = "rotated"        // Replaced during refresh
	ReasonRevoked       = "revoked"        // Explicit revoke call
	ReasonReuse         = "reuse_detected" // Descendant of a replayed token
	ReasonPasswordReset = "password_reset" // Password was reset
	ReasonDisabled      = "account_disabled"
)

// IsExpired reports whether the token is past its expiry at now
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsRevoked reports whether the token was revoked
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token can still be exchanged
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
