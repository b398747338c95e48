package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketTypeRepository interface {
	FindByID(ctx context.Context, id string) (*models.TicketType, error)
	Upsert(ctx context.Context, tt *models.TicketType) error
}

type ticketTypeRepository struct {
	db *gorm.DB
}

func NewTicketTypeRepository(db *gorm.DB) TicketTypeRepository {
	return &ticketTypeRepository{db: db}
}

func (r *ticketTypeRepository) FindByID(ctx context.Context, id string) (*models.TicketType, error) {
	var tt models.TicketType
	if err := r.db.WithContext(ctx).First(&tt, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tt, nil
}

// Upsert inserts a new type fully available. For an existing type a
// quantity change moves available by the same delta, so tickets already
// sold stay sold; a quantity below that count is rejected.
func (r *ticketTypeRepository) Upsert(ctx context.Context, tt *models.TicketType) error {
	tt.Available = tt.Quantity
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":       gorm.Expr("excluded.name"),
			"price":      gorm.Expr("excluded.price"),
			"quantity":   gorm.Expr("excluded.quantity"),
			"available":  gorm.Expr("ticket_types.available + (excluded.quantity - ticket_types.quantity)"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(tt).Error
	if isCheckViolation(err) {
		return ErrQuantityBelowSold
	}
	return err
}
