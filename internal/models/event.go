package models

import "time"

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

type Event struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizerID string      `gorm:"not null;index" json:"organizer_id"`
	Name        string      `gorm:"not null" json:"name"`
	Status      EventStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Capacity    int         `gorm:"not null;check:capacity >= 0" json:"capacity"`
	StartAt     time.Time   `gorm:"not null" json:"start_at"`
	EndAt       time.Time   `gorm:"not null" json:"end_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (e *Event) IsPublished() bool {
	return e.Status == EventStatusPublished
}

// StaffAssignment grants a user check-in rights for one event.
type StaffAssignment struct {
	EventID   string    `gorm:"type:uuid;primaryKey" json:"event_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (StaffAssignment) TableName() string {
	return "event_staff"
}
