package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

// RegistrationView is a registration as shown to a reader. Token is only
// set when the reader is the holder.
type RegistrationView struct {
	Registration models.Registration
	Token        string
}

type RegistrationService interface {
	Get(ctx context.Context, id string, reader identity.Principal) (*RegistrationView, error)
}

type registrationService struct {
	Deps
}

func NewRegistrationService(d Deps) RegistrationService {
	return &registrationService{Deps: d}
}

func (s *registrationService) Get(ctx context.Context, id string, reader identity.Principal) (*RegistrationView, error) {
	if err := requireUUID("registration_id", id); err != nil {
		return nil, err
	}
	if reader.UserID == "" {
		return nil, identity.ErrUnauthenticated
	}

	reg, err := s.Registrations.FindByID(ctx, strings.ToLower(id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("registration not found")
	}
	if err != nil {
		return nil, apperror.Database("find registration", err)
	}

	if reg.UserID == reader.UserID {
		return &RegistrationView{Registration: *reg, Token: reg.SignedToken}, nil
	}

	allowed, err := s.Authorizer.IsOrganizerOrAdmin(ctx, reader, reg.EventID)
	if err != nil {
		return nil, authzError(err)
	}
	if !allowed {
		// Indistinguishable from a missing row to non-owners.
		return nil, apperror.NotFound("registration not found")
	}
	return &RegistrationView{Registration: *reg}, nil
}
