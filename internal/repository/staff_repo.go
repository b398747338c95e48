package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"gorm.io/gorm"
)

type StaffRepository interface {
	IsAssigned(ctx context.Context, eventID, userID string) (bool, error)
}

type staffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) IsAssigned(ctx context.Context, eventID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StaffAssignment{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
