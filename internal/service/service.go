// Package service implements ticket issuance, check-in and cancellation.
// All contended state lives in the repository; services hold no mutable
// state between calls and are safe for concurrent use.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/authz"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/qrtoken"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/clock"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

// Deps are the collaborators shared by the ticketing services.
type Deps struct {
	Events        repository.EventRepository
	TicketTypes   repository.TicketTypeRepository
	Registrations repository.RegistrationRepository
	Authorizer    authz.Authorizer
	Codec         *qrtoken.Codec
	Notifier      *notify.Dispatcher
	Clock         clock.Clock
	Logger        logger.Logger
}

func (d Deps) now() time.Time {
	if d.Clock == nil {
		return clock.Real().Now()
	}
	return d.Clock.Now()
}

func (d Deps) findEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := d.Events.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("event not found")
	}
	if err != nil {
		return nil, apperror.Database("find event", err)
	}
	return event, nil
}

// enqueue hands n to the dispatcher after a commit. The caller never waits
// for delivery and a failed send never changes the command result.
func (d Deps) enqueue(ctx context.Context, n notify.Notification) {
	d.Notifier.Dispatch(ctx, n)
}

// storeError passes classified errors through and wraps everything else as
// a Database failure of op.
func storeError(op string, err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Database(op, err)
}

func authzError(err error) error {
	if errors.Is(err, authz.ErrEventNotFound) {
		return apperror.NotFound("event not found")
	}
	return apperror.Database("authorization lookup", err)
}

func requireUUID(field, value string) error {
	if value == "" {
		return apperror.Validation(field + " is required")
	}
	if _, err := uuid.Parse(value); err != nil || len(value) != 36 {
		return apperror.Validation(field + " must be a UUID")
	}
	return nil
}

func alreadyCheckedIn(reg *models.Registration) error {
	details := map[string]any{"registration_id": reg.ID}
	if reg.CheckedInAt != nil {
		details["checked_in_at"] = *reg.CheckedInAt
	}
	if reg.CheckedInBy != nil {
		details["checked_in_by"] = *reg.CheckedInBy
	}
	return apperror.BusinessRule(apperror.CodeAlreadyCheckedIn, "ticket has already been checked in").
		WithDetails(details)
}

func cancelledDetails(reg *models.Registration) map[string]any {
	details := map[string]any{"registration_id": reg.ID}
	if reg.CancelledAt != nil {
		details["cancelled_at"] = *reg.CancelledAt
	}
	return details
}
