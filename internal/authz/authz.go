// Package authz holds the capability checks every ticketing command uses.
// Role comparisons live here and nowhere else.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
)

var ErrEventNotFound = errors.New("event not found")

type Authorizer interface {
	// IsAssignedStaff reports whether p may check attendees in at eventID:
	// admins, the event's organizer, and assigned staff.
	IsAssignedStaff(ctx context.Context, p identity.Principal, eventID string) (bool, error)
	IsOrganizerOrAdmin(ctx context.Context, p identity.Principal, eventID string) (bool, error)
}

type authorizer struct {
	events repository.EventRepository
	staff  repository.StaffRepository
}

func New(events repository.EventRepository, staff repository.StaffRepository) Authorizer {
	return &authorizer{events: events, staff: staff}
}

func (a *authorizer) IsAssignedStaff(ctx context.Context, p identity.Principal, eventID string) (bool, error) {
	ok, err := a.IsOrganizerOrAdmin(ctx, p, eventID)
	if err != nil || ok {
		return ok, err
	}
	assigned, err := a.staff.IsAssigned(ctx, eventID, p.UserID)
	if err != nil {
		return false, fmt.Errorf("staff lookup: %w", err)
	}
	return assigned, nil
}

func (a *authorizer) IsOrganizerOrAdmin(ctx context.Context, p identity.Principal, eventID string) (bool, error) {
	if p.IsAdmin() {
		return true, nil
	}
	if p.UserID == "" {
		return false, nil
	}
	event, err := a.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrEventNotFound
		}
		return false, fmt.Errorf("event lookup: %w", err)
	}
	return event.OrganizerID == p.UserID, nil
}
