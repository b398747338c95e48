package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/authz"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/qrtoken"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository/memory"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/clock"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

const (
	testSecret   = "test-signing-secret"
	eventID      = "3f2b8c1e-6a4d-4e8f-9b21-7c5d0e9a1f34"
	otherEventID = "9d0c7b6a-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	ticketTypeID = "b7e1d2c3-4f5a-4b6c-9d7e-8f9a0b1c2d3e"
	organizerID  = "organizer-1"
	staffID      = "staff-1"
)

var (
	eventStart = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	eventEnd   = eventStart.Add(2 * time.Hour)

	attendee  = identity.Principal{UserID: "user-a", Role: identity.RoleAttendee}
	staff     = identity.Principal{UserID: staffID, Role: identity.RoleStaff}
	organizer = identity.Principal{UserID: organizerID, Role: identity.RoleOrganizer}
	admin     = identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin}
)

type mockNotifier struct {
	mu          sync.Mutex
	sent        []notify.Notification
	EnqueueFunc func(ctx context.Context, n notify.Notification) error
}

func (m *mockNotifier) Enqueue(ctx context.Context, n notify.Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, n)
	}
	return nil
}

func (m *mockNotifier) kinds() []notify.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notify.Kind, 0, len(m.sent))
	for _, n := range m.sent {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	clock      *clock.Fake
	codec      *qrtoken.Codec
	notifier   *mockNotifier
	dispatcher *notify.Dispatcher

	issuance     IssuanceService
	checkIn      CheckInService
	cancellation CancellationService
	registration RegistrationService
}

// newFixture seeds a published event [eventStart, eventEnd] with one ticket
// type of the given quantity and capacity 100. The clock starts 3h before
// the event.
func newFixture(t *testing.T, quantity int) *fixture {
	t.Helper()

	codec, err := qrtoken.New(testSecret)
	require.NoError(t, err)

	store := memory.NewStore()
	store.PutEvent(models.Event{
		ID:          eventID,
		OrganizerID: organizerID,
		Name:        "Launch Night",
		Status:      models.EventStatusPublished,
		Capacity:    100,
		StartAt:     eventStart,
		EndAt:       eventEnd,
	})
	store.PutTicketType(models.TicketType{
		ID:        ticketTypeID,
		EventID:   eventID,
		Name:      "General",
		Quantity:  quantity,
		Available: quantity,
	})
	store.AssignStaff(eventID, staffID)

	l := logger.InitializeTestZapLogger()
	f := &fixture{
		store:    store,
		clock:    clock.NewFake(eventStart.Add(-3 * time.Hour)),
		codec:    codec,
		notifier: &mockNotifier{},
	}
	f.dispatcher = notify.NewDispatcher(f.notifier, time.Second, l)
	d := Deps{
		Events:        store.Events(),
		TicketTypes:   store.TicketTypes(),
		Registrations: store.Registrations(),
		Authorizer:    authz.New(store.Events(), store.Staff()),
		Codec:         codec,
		Notifier:      f.dispatcher,
		Clock:         f.clock,
		Logger:        l,
	}
	f.issuance = NewIssuanceService(d)
	f.checkIn = NewCheckInService(d)
	f.cancellation = NewCancellationService(d)
	f.registration = NewRegistrationService(d)
	return f
}

// sentKinds waits for dispatched notifications and lists their kinds.
func (f *fixture) sentKinds(t *testing.T) []notify.Kind {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.dispatcher.Flush(ctx))
	return f.notifier.kinds()
}

func (f *fixture) updateEvent(mut func(e *models.Event)) {
	e, _ := f.store.Events().FindByID(context.Background(), eventID)
	mut(e)
	f.store.PutEvent(*e)
}

func (f *fixture) issue(t *testing.T, userID string) *IssueResult {
	t.Helper()
	res, err := f.issuance.Issue(context.Background(), IssueInput{
		EventID:      eventID,
		UserID:       userID,
		TicketTypeID: ticketTypeID,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) available(t *testing.T) int {
	t.Helper()
	tt, ok := f.store.TicketType(ticketTypeID)
	require.True(t, ok)
	return tt.Available
}

func requireCode(t *testing.T, err error, code apperror.Code) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}
