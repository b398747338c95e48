package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegistrationStatus string

const (
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCheckedIn RegistrationStatus = "checked_in"
	StatusCancelled RegistrationStatus = "cancelled"
)

// IsTerminal reports whether no further transition may leave the status.
func (s RegistrationStatus) IsTerminal() bool {
	return s == StatusCheckedIn || s == StatusCancelled
}

type Registration struct {
	ID           string             `gorm:"type:uuid;primaryKey" json:"id"`
	EventID      string             `gorm:"type:uuid;not null;index" json:"event_id"`
	TicketTypeID string             `gorm:"type:uuid;not null" json:"ticket_type_id"`
	UserID       string             `gorm:"not null;index" json:"user_id"`
	Status       RegistrationStatus `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	SignedToken  string             `gorm:"not null" json:"-"`
	CheckedInAt  *time.Time         `json:"checked_in_at,omitempty"`
	CheckedInBy  *string            `json:"checked_in_by,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsActive reports whether the registration still holds a seat.
func (r *Registration) IsActive() bool {
	return r.Status != StatusCancelled
}

// CheckIn is the audit row written for every successful check-in.
type CheckIn struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	RegistrationID string    `gorm:"type:uuid;not null;uniqueIndex" json:"registration_id"`
	EventID        string    `gorm:"type:uuid;not null;index" json:"event_id"`
	StaffID        string    `gorm:"not null" json:"staff_id"`
	CheckedInAt    time.Time `gorm:"not null" json:"checked_in_at"`
}

func (c *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
