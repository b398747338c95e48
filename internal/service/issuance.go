package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/qrtoken"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

// pendingToken is stored between insert and token update inside the
// issuance transaction. It never verifies and is never committed.
const pendingToken = "pending"

type IssueInput struct {
	EventID      string
	UserID       string
	TicketTypeID string
}

type IssueResult struct {
	RegistrationID string
	TicketTypeID   string
	Token          string
	IssuedAt       time.Time
}

type IssuanceService interface {
	Issue(ctx context.Context, in IssueInput) (*IssueResult, error)
}

type issuanceService struct {
	Deps
}

func NewIssuanceService(d Deps) IssuanceService {
	return &issuanceService{Deps: d}
}

func (s *issuanceService) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	if err := requireUUID("event_id", in.EventID); err != nil {
		return nil, err
	}
	if err := requireUUID("ticket_type_id", in.TicketTypeID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.UserID) == "" {
		return nil, apperror.Validation("user_id is required")
	}
	eventID := strings.ToLower(in.EventID)
	ticketTypeID := strings.ToLower(in.TicketTypeID)

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsPublished() {
		return nil, apperror.BusinessRule(apperror.CodeEventNotPublished, "event is not open for registration")
	}

	now := s.now()
	if !now.Before(event.StartAt) {
		return nil, apperror.BusinessRule(apperror.CodeEventAlreadyStarted, "event has already started").
			WithDetails(map[string]any{"start_at": event.StartAt})
	}

	tt, err := s.TicketTypes.FindByID(ctx, ticketTypeID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && tt.EventID != eventID) {
		return nil, apperror.NotFound("ticket type not found")
	}
	if err != nil {
		return nil, apperror.Database("find ticket type", err)
	}

	existing, err := s.Registrations.FindActive(ctx, eventID, in.UserID, ticketTypeID)
	switch {
	case err == nil:
		return nil, duplicateRegistration().WithDetails(map[string]any{"registration_id": existing.ID})
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperror.Database("find registration", err)
	}

	active, err := s.Registrations.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, apperror.Database("count registrations", err)
	}
	if active >= int64(event.Capacity) {
		return nil, apperror.BusinessRule(apperror.CodeCapacityExceeded, "event is at capacity").
			WithDetails(map[string]any{"capacity": event.Capacity})
	}

	reg := &models.Registration{
		ID:           uuid.NewString(),
		EventID:      eventID,
		TicketTypeID: ticketTypeID,
		UserID:       in.UserID,
		Status:       models.StatusConfirmed,
		SignedToken:  pendingToken,
	}
	issuedAt := qrtoken.FormatIssuedAt(now)

	err = s.Registrations.Transaction(ctx, func(tx repository.RegistrationTx) error {
		locked, err := tx.LockTicketType(ctx, ticketTypeID)
		if err != nil {
			return err
		}
		if locked.Available <= 0 {
			return ticketsSoldOut()
		}
		if err := tx.DecrementAvailable(ctx, ticketTypeID); err != nil {
			if errors.Is(err, repository.ErrNoneAvailable) {
				return ticketsSoldOut()
			}
			return err
		}

		if err := tx.Create(ctx, reg); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return duplicateRegistration()
			}
			return err
		}

		reg.SignedToken = s.Codec.Encode(eventID, reg.ID, issuedAt)
		return tx.UpdateToken(ctx, reg.ID, reg.SignedToken)
	})
	if err != nil {
		return nil, storeError("issue ticket", err)
	}

	s.enqueue(ctx, notify.Notification{
		Recipient: in.UserID,
		Kind:      notify.KindTicketIssued,
		Data: map[string]any{
			"registration_id": reg.ID,
			"event_id":        eventID,
			"event_name":      event.Name,
			"ticket_type":     tt.Name,
			"start_at":        event.StartAt,
			"token":           reg.SignedToken,
		},
	})

	// Report the instant as signed, not the clock reading it was cut from.
	claims, _ := qrtoken.Decode(reg.SignedToken)
	return &IssueResult{
		RegistrationID: reg.ID,
		TicketTypeID:   ticketTypeID,
		Token:          reg.SignedToken,
		IssuedAt:       claims.IssuedAtTime(),
	}, nil
}

func ticketsSoldOut() *apperror.Error {
	return apperror.BusinessRule(apperror.CodeTicketsSoldOut, "tickets are sold out")
}

func duplicateRegistration() *apperror.Error {
	return apperror.Conflict(apperror.CodeDuplicateRegistration, "an active registration already exists for this ticket type")
}
