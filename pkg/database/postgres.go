package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
)

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Event{},
		&models.TicketType{},
		&models.Registration{},
		&models.CheckIn{},
		&models.StaffAssignment{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	// One live registration per (event, user, ticket type). Cancelled rows
	// stay for the audit trail and do not count.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_active
		ON registrations (event_id, user_id, ticket_type_id)
		WHERE status <> 'cancelled'
	`).Error; err != nil {
		return fmt.Errorf("failed to create active registration index: %w", err)
	}

	for _, stmt := range []string{
		`ALTER TABLE ticket_types DROP CONSTRAINT IF EXISTS chk_ticket_types_available_le_quantity`,
		`ALTER TABLE ticket_types ADD CONSTRAINT chk_ticket_types_available_le_quantity CHECK (available <= quantity)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add inventory constraint: %w", err)
		}
	}

	return nil
}
