package models

import "time"

type TicketType struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   string    `gorm:"type:uuid;not null;index" json:"event_id"`
	Name      string    `gorm:"not null" json:"name"`
	Price     float64   `gorm:"type:numeric(12,2);not null;check:price >= 0" json:"price"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	Available int       `gorm:"not null;check:available >= 0" json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
