package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/qrtoken"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/window"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

type CheckInInput struct {
	Token   string
	EventID string
	Staff   identity.Principal
}

type CheckInResult struct {
	RegistrationID string
	HolderID       string
	TicketTypeID   string
	CheckedInAt    time.Time
}

type CheckInService interface {
	CheckIn(ctx context.Context, in CheckInInput) (*CheckInResult, error)
}

type checkInService struct {
	Deps
}

func NewCheckInService(d Deps) CheckInService {
	return &checkInService{Deps: d}
}

func (s *checkInService) CheckIn(ctx context.Context, in CheckInInput) (*CheckInResult, error) {
	if strings.TrimSpace(in.Token) == "" {
		return nil, apperror.Validation("token is required")
	}
	if err := requireUUID("event_id", in.EventID); err != nil {
		return nil, err
	}
	if in.Staff.UserID == "" {
		return nil, identity.ErrUnauthenticated
	}
	eventID := strings.ToLower(in.EventID)

	claims, ok := qrtoken.Decode(in.Token)
	if !ok {
		return nil, apperror.BusinessRule(apperror.CodeInvalidQRCode, "QR code is not a valid ticket")
	}
	if !strings.EqualFold(claims.EventID, eventID) {
		return nil, apperror.BusinessRule(apperror.CodeWrongEvent, "ticket belongs to a different event")
	}

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsPublished() {
		return nil, apperror.BusinessRule(apperror.CodeEventNotPublished, "event is not published")
	}

	if !s.Codec.Verify(in.Token) {
		return nil, apperror.BusinessRule(apperror.CodeInvalidSignature, "ticket signature is invalid")
	}

	now := s.now()
	switch window.Locate(event.StartAt, event.EndAt, now) {
	case window.Before:
		return nil, apperror.BusinessRule(apperror.CodeEventNotStarted, "check-in has not opened yet").
			WithDetails(map[string]any{"opens_at": window.Opens(event.StartAt)})
	case window.After:
		return nil, apperror.BusinessRule(apperror.CodeEventEnded, "check-in has closed").
			WithDetails(map[string]any{"closed_at": window.Closes(event.EndAt)})
	}

	allowed, err := s.Authorizer.IsAssignedStaff(ctx, in.Staff, eventID)
	if err != nil {
		return nil, authzError(err)
	}
	if !allowed {
		return nil, apperror.Unauthorized("not assigned to check in attendees for this event")
	}

	regID := strings.ToLower(claims.RegistrationID)
	reg, err := s.Registrations.FindByIDAndEvent(ctx, regID, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("registration not found")
	}
	if err != nil {
		return nil, apperror.Database("find registration", err)
	}
	if err := checkInGuard(reg); err != nil {
		return nil, err
	}

	err = s.Registrations.Transaction(ctx, func(tx repository.RegistrationTx) error {
		locked, err := tx.LockRegistration(ctx, regID)
		if err != nil {
			return err
		}
		// A concurrent scan or cancel may have won the lock first.
		if err := checkInGuard(locked); err != nil {
			return err
		}
		if err := tx.MarkCheckedIn(ctx, regID, now, in.Staff.UserID); err != nil {
			return err
		}
		return tx.CreateCheckIn(ctx, &models.CheckIn{
			RegistrationID: regID,
			EventID:        eventID,
			StaffID:        in.Staff.UserID,
			CheckedInAt:    now,
		})
	})
	if errors.Is(err, repository.ErrStatusChanged) {
		err = s.reloadGuard(ctx, regID, checkInGuard)
	}
	if err != nil {
		return nil, storeError("check in", err)
	}

	s.enqueue(ctx, notify.Notification{
		Recipient: reg.UserID,
		Kind:      notify.KindCheckedIn,
		Data: map[string]any{
			"registration_id": regID,
			"event_id":        eventID,
			"event_name":      event.Name,
			"checked_in_at":   now,
		},
	})

	return &CheckInResult{
		RegistrationID: regID,
		HolderID:       reg.UserID,
		TicketTypeID:   reg.TicketTypeID,
		CheckedInAt:    now,
	}, nil
}

func checkInGuard(reg *models.Registration) error {
	if !reg.Status.IsTerminal() {
		return nil
	}
	if reg.Status == models.StatusCancelled {
		return apperror.BusinessRule(apperror.CodeRegistrationCancelled, "registration has been cancelled").
			WithDetails(cancelledDetails(reg))
	}
	return alreadyCheckedIn(reg)
}

// reloadGuard re-reads a registration whose conditional update matched no
// row and reports the terminal state it moved to.
func (d Deps) reloadGuard(ctx context.Context, id string, guard func(*models.Registration) error) error {
	reg, err := d.Registrations.FindByID(ctx, id)
	if err != nil {
		return apperror.Database("reload registration", err)
	}
	if err := guard(reg); err != nil {
		return err
	}
	return apperror.Database("update registration", repository.ErrStatusChanged)
}
