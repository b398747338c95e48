package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistrationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByIDAndEvent(ctx context.Context, id, eventID string) (*models.Registration, error)
	FindActive(ctx context.Context, eventID, userID, ticketTypeID string) (*models.Registration, error)
	CountActiveByEvent(ctx context.Context, eventID string) (int64, error)
	// Transaction runs fn in one store transaction. Any error from fn rolls
	// everything back.
	Transaction(ctx context.Context, fn func(tx RegistrationTx) error) error
}

// RegistrationTx is the set of writes allowed inside a transaction. Lock*
// calls hold the row until the transaction ends.
type RegistrationTx interface {
	LockTicketType(ctx context.Context, id string) (*models.TicketType, error)
	DecrementAvailable(ctx context.Context, ticketTypeID string) error
	IncrementAvailable(ctx context.Context, ticketTypeID string) error
	Create(ctx context.Context, reg *models.Registration) error
	UpdateToken(ctx context.Context, id, token string) error
	LockRegistration(ctx context.Context, id string) (*models.Registration, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time, staffID string) error
	MarkCancelled(ctx context.Context, id string, at time.Time) error
	CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registrationRepository) FindByIDAndEvent(ctx context.Context, id, eventID string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.WithContext(ctx).
		Where("id = ? AND event_id = ?", id, eventID).
		First(&reg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registrationRepository) FindActive(ctx context.Context, eventID, userID, ticketTypeID string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ? AND ticket_type_id = ? AND status <> ?",
			eventID, userID, ticketTypeID, models.StatusCancelled).
		First(&reg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registrationRepository) CountActiveByEvent(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("event_id = ? AND status IN ?", eventID, []models.RegistrationStatus{models.StatusConfirmed, models.StatusCheckedIn}).
		Count(&count).Error
	return count, err
}

func (r *registrationRepository) Transaction(ctx context.Context, fn func(tx RegistrationTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&registrationTx{tx: tx})
	})
}

type registrationTx struct {
	tx *gorm.DB
}

func (t *registrationTx) LockTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	var tt models.TicketType
	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tt, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &tt, nil
}

func (t *registrationTx) DecrementAvailable(ctx context.Context, ticketTypeID string) error {
	res := t.tx.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND available > 0", ticketTypeID).
		Update("available", gorm.Expr("available - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoneAvailable
	}
	return nil
}

func (t *registrationTx) IncrementAvailable(ctx context.Context, ticketTypeID string) error {
	res := t.tx.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND available < quantity", ticketTypeID).
		Update("available", gorm.Expr("available + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInventoryFull
	}
	return nil
}

func (t *registrationTx) Create(ctx context.Context, reg *models.Registration) error {
	return translate(t.tx.WithContext(ctx).Create(reg).Error)
}

func (t *registrationTx) UpdateToken(ctx context.Context, id, token string) error {
	res := t.tx.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ?", id).
		Update("signed_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *registrationTx) LockRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := t.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reg, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (t *registrationTx) MarkCheckedIn(ctx context.Context, id string, at time.Time, staffID string) error {
	return t.transition(ctx, id, map[string]any{
		"status":        models.StatusCheckedIn,
		"checked_in_at": at,
		"checked_in_by": staffID,
	})
}

func (t *registrationTx) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	return t.transition(ctx, id, map[string]any{
		"status":       models.StatusCancelled,
		"cancelled_at": at,
	})
}

// transition only moves a registration out of confirmed.
func (t *registrationTx) transition(ctx context.Context, id string, updates map[string]any) error {
	res := t.tx.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, models.StatusConfirmed).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (t *registrationTx) CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error {
	return t.tx.WithContext(ctx).Create(checkIn).Error
}
