package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Upsert(ctx context.Context, event *models.Event) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

// Upsert inserts or refreshes an event published by the event service.
func (r *eventRepository) Upsert(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"organizer_id", "name", "status", "capacity", "start_at", "end_at", "updated_at"}),
	}).Create(event).Error
}
