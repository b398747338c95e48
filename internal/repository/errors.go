package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("active registration already exists")
	ErrNoneAvailable = errors.New("no tickets available")
	ErrInventoryFull = errors.New("ticket inventory already at quantity")
	ErrStatusChanged = errors.New("registration status changed")
	// ErrQuantityBelowSold rejects a quantity lower than the tickets
	// already sold for the type.
	ErrQuantityBelowSold = errors.New("ticket quantity below tickets already sold")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

func isCheckViolation(err error) bool {
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
