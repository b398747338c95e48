package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

type CancelInput struct {
	RegistrationID string
	Requester      identity.Principal
}

type CancelResult struct {
	RegistrationID string
	CancelledAt    time.Time
}

type CancellationService interface {
	Cancel(ctx context.Context, in CancelInput) (*CancelResult, error)
}

type cancellationService struct {
	Deps
}

func NewCancellationService(d Deps) CancellationService {
	return &cancellationService{Deps: d}
}

func (s *cancellationService) Cancel(ctx context.Context, in CancelInput) (*CancelResult, error) {
	if err := requireUUID("registration_id", in.RegistrationID); err != nil {
		return nil, err
	}
	if in.Requester.UserID == "" {
		return nil, identity.ErrUnauthenticated
	}
	regID := strings.ToLower(in.RegistrationID)

	reg, err := s.Registrations.FindByID(ctx, regID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("registration not found")
	}
	if err != nil {
		return nil, apperror.Database("find registration", err)
	}

	if reg.UserID != in.Requester.UserID {
		allowed, err := s.Authorizer.IsOrganizerOrAdmin(ctx, in.Requester, reg.EventID)
		if err != nil {
			return nil, authzError(err)
		}
		if !allowed {
			return nil, apperror.Unauthorized("not allowed to cancel this registration")
		}
	}

	if err := cancelGuard(reg); err != nil {
		return nil, err
	}

	event, err := s.findEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if now.After(event.EndAt) {
		return nil, apperror.BusinessRule(apperror.CodeEventEnded, "event has already ended").
			WithDetails(map[string]any{"end_at": event.EndAt})
	}
	if event.Status == models.EventStatusCancelled {
		return nil, apperror.BusinessRule(apperror.CodeEventCancelled, "event has been cancelled")
	}

	err = s.Registrations.Transaction(ctx, func(tx repository.RegistrationTx) error {
		locked, err := tx.LockRegistration(ctx, regID)
		if err != nil {
			return err
		}
		if err := cancelGuard(locked); err != nil {
			return err
		}
		if err := tx.MarkCancelled(ctx, regID, now); err != nil {
			return err
		}
		return tx.IncrementAvailable(ctx, locked.TicketTypeID)
	})
	if errors.Is(err, repository.ErrStatusChanged) {
		err = s.reloadGuard(ctx, regID, cancelGuard)
	}
	if err != nil {
		return nil, storeError("cancel registration", err)
	}

	s.enqueue(ctx, notify.Notification{
		Recipient: reg.UserID,
		Kind:      notify.KindRegistrationCancelled,
		Data: map[string]any{
			"registration_id": regID,
			"event_id":        reg.EventID,
			"event_name":      event.Name,
			"cancelled_at":    now,
		},
	})

	return &CancelResult{RegistrationID: regID, CancelledAt: now}, nil
}

func cancelGuard(reg *models.Registration) error {
	if !reg.Status.IsTerminal() {
		return nil
	}
	if reg.Status == models.StatusCancelled {
		return apperror.BusinessRule(apperror.CodeAlreadyCancelled, "registration is already cancelled").
			WithDetails(cancelledDetails(reg))
	}
	return alreadyCheckedIn(reg)
}
