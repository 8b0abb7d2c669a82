package domain

import "time" // Timestamps

// Event Model
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                            // Primary key
	AccountID   uint      `gorm:"index;not null" json:"account_id"`                // Organizer
	Account     *Account  `gorm:"constraint:OnDelete:CASCADE" json:"-"`            // Cascade with the organizer
	Name        string    `gorm:"size:200;not null" json:"name"`                   // Event name
	Description string    `gorm:"type:text" json:"description"`                    // Description
	Date        time.Time `gorm:"not null" json:"date"`                            // When it happens
	Location    string    `gorm:"size:255" json:"location"`                        // Where it happens
	Status      int       `gorm:"not null;default:1" json:"status"`                // 1 open, 0 closed
	Image       string    `gorm:"size:255;default:default-image.png" json:"image"` // Image file name
}

// EventParticipant Model. The (account, event) pair is unique.
type EventParticipant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                            // Primary key
	AccountID uint      `gorm:"uniqueIndex:idx_participant_pair;not null" json:"account_id"`     // Participant
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE" json:"account,omitempty"`            // Cascade with the participant
	EventID   uint      `gorm:"uniqueIndex:idx_participant_pair;index;not null" json:"event_id"` // Event
	Event     *Event    `gorm:"constraint:OnDelete:CASCADE" json:"event,omitempty"`              // Cascade with the event
	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`                                       // Join time
}
