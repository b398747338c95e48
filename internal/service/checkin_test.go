package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/qrtoken"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

func TestCheckIn_Success(t *testing.T) {
	f := newFixture(t, 1)
	issued := f.issue(t, attendee.UserID)
	f.clock.Set(eventStart.Add(-time.Hour))

	res, err := f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: staff})

	require.NoError(t, err)
	assert.Equal(t, issued.RegistrationID, res.RegistrationID)
	assert.Equal(t, attendee.UserID, res.HolderID)
	assert.Equal(t, eventStart.Add(-time.Hour), res.CheckedInAt)

	reg, _ := f.store.Registration(issued.RegistrationID)
	assert.Equal(t, models.StatusCheckedIn, reg.Status)
	require.NotNil(t, reg.CheckedInAt)
	require.NotNil(t, reg.CheckedInBy)
	assert.Equal(t, staffID, *reg.CheckedInBy)

	checkIns := f.store.CheckIns()
	require.Len(t, checkIns, 1)
	assert.Equal(t, issued.RegistrationID, checkIns[0].RegistrationID)
	assert.Equal(t, staffID, checkIns[0].StaffID)

	assert.ElementsMatch(t, []notify.Kind{notify.KindTicketIssued, notify.KindCheckedIn}, f.sentKinds(t))
}

func TestCheckIn_OrganizerAndAdminMayScan(t *testing.T) {
	for _, p := range []identity.Principal{organizer, admin} {
		t.Run(string(p.Role), func(t *testing.T) {
			f := newFixture(t, 1)
			issued := f.issue(t, attendee.UserID)
			f.clock.Set(eventStart)

			_, err := f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: p})
			assert.NoError(t, err)
		})
	}
}

func TestCheckIn_Failures(t *testing.T) {
	tests := []struct {
		name  string
		token func(f *fixture, issued *IssueResult) string
		setup func(f *fixture)
		staff identity.Principal
		code  apperror.Code
	}{
		{
			name:  "garbage token",
			token: func(*fixture, *IssueResult) string { return "not-a-ticket" },
			code:  apperror.CodeInvalidQRCode,
		},
		{
			name: "ticket for another event",
			token: func(f *fixture, issued *IssueResult) string {
				return f.codec.Encode(otherEventID, issued.RegistrationID, qrtoken.FormatIssuedAt(eventStart))
			},
			code: apperror.CodeWrongEvent,
		},
		{
			name:  "event not published",
			setup: func(f *fixture) { f.updateEvent(func(e *models.Event) { e.Status = models.EventStatusCancelled }) },
			code:  apperror.CodeEventNotPublished,
		},
		{
			name: "forged signature",
			token: func(_ *fixture, issued *IssueResult) string {
				forger, _ := qrtoken.New("attacker-secret")
				claims, _ := qrtoken.Decode(issued.Token)
				return forger.Encode(claims.EventID, claims.RegistrationID, claims.IssuedAt)
			},
			code: apperror.CodeInvalidSignature,
		},
		{
			name: "tampered issuedAt",
			token: func(_ *fixture, issued *IssueResult) string {
				claims, _ := qrtoken.Decode(issued.Token)
				return strings.Join([]string{claims.EventID, claims.RegistrationID, "2020-01-01T00:00:00.000Z", claims.Signature}, ":")
			},
			code: apperror.CodeInvalidSignature,
		},
		{
			name:  "before the window",
			setup: func(f *fixture) { f.clock.Set(eventStart.Add(-2*time.Hour - time.Second)) },
			code:  apperror.CodeEventNotStarted,
		},
		{
			name:  "after the window",
			setup: func(f *fixture) { f.clock.Set(eventEnd.Add(2*time.Hour + time.Second)) },
			code:  apperror.CodeEventEnded,
		},
		{
			name:  "unassigned staff",
			staff: identity.Principal{UserID: "staff-2", Role: identity.RoleStaff},
			code:  apperror.CodeUnauthorized,
		},
		{
			name: "unknown registration",
			token: func(f *fixture, _ *IssueResult) string {
				return f.codec.Encode(eventID, uuid.NewString(), qrtoken.FormatIssuedAt(eventStart))
			},
			code: apperror.CodeNotFound,
		},
		{
			name:  "missing token",
			token: func(*fixture, *IssueResult) string { return " " },
			code:  apperror.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)
			issued := f.issue(t, attendee.UserID)
			f.clock.Set(eventStart)
			if tt.setup != nil {
				tt.setup(f)
			}
			token := issued.Token
			if tt.token != nil {
				token = tt.token(f, issued)
			}
			p := staff
			if tt.staff.UserID != "" {
				p = tt.staff
			}

			_, err := f.checkIn.CheckIn(context.Background(), CheckInInput{Token: token, EventID: eventID, Staff: p})

			requireCode(t, err, tt.code)
			reg, _ := f.store.Registration(issued.RegistrationID)
			assert.Equal(t, models.StatusConfirmed, reg.Status)
			assert.Empty(t, f.store.CheckIns())
		})
	}
}

func TestCheckIn_WindowBoundsAreInclusive(t *testing.T) {
	for _, at := range []time.Time{eventStart.Add(-2 * time.Hour), eventEnd.Add(2 * time.Hour)} {
		f := newFixture(t, 1)
		issued := f.issue(t, attendee.UserID)
		f.clock.Set(at)

		_, err := f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: staff})
		assert.NoError(t, err, at)
	}
}

func TestCheckIn_CancelledRegistration(t *testing.T) {
	f := newFixture(t, 1)
	issued := f.issue(t, attendee.UserID)
	_, err := f.cancellation.Cancel(context.Background(), CancelInput{RegistrationID: issued.RegistrationID, Requester: attendee})
	require.NoError(t, err)
	f.clock.Set(eventStart)

	_, err = f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: staff})

	appErr := requireCode(t, err, apperror.CodeRegistrationCancelled)
	assert.Contains(t, appErr.Details, "cancelled_at")
}

func TestCheckIn_SecondScanReportsFirstTimestamp(t *testing.T) {
	f := newFixture(t, 1)
	issued := f.issue(t, attendee.UserID)
	f.clock.Set(eventStart.Add(-time.Hour))

	first, err := f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: staff})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: admin})

	appErr := requireCode(t, err, apperror.CodeAlreadyCheckedIn)
	assert.Equal(t, apperror.KindBusinessRule, appErr.Kind)
	assert.Equal(t, first.CheckedInAt, appErr.Details["checked_in_at"])
	assert.Equal(t, staffID, appErr.Details["checked_in_by"])
	assert.Len(t, f.store.CheckIns(), 1)
}

func TestCheckIn_ConcurrentScansTransitionOnce(t *testing.T) {
	const scanners = 8
	f := newFixture(t, 1)
	issued := f.issue(t, attendee.UserID)
	f.clock.Set(eventStart)

	var (
		mu      sync.Mutex
		wins    []*CheckInResult
		repeats []*apperror.Error
	)
	var g errgroup.Group
	for i := 0; i < scanners; i++ {
		g.Go(func() error {
			res, err := f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: staff})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins = append(wins, res)
				return nil
			}
			appErr, ok := apperror.As(err)
			if !ok || appErr.Code != apperror.CodeAlreadyCheckedIn {
				return err
			}
			repeats = append(repeats, appErr)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, wins, 1)
	assert.Len(t, repeats, scanners-1)
	for _, r := range repeats {
		assert.Equal(t, wins[0].CheckedInAt, r.Details["checked_in_at"])
	}
	assert.Len(t, f.store.CheckIns(), 1)
}

func TestCheckIn_CommitFailureKeepsRegistrationConfirmed(t *testing.T) {
	f := newFixture(t, 1)
	issued := f.issue(t, attendee.UserID)
	f.clock.Set(eventStart)
	f.store.FailCommit = context.DeadlineExceeded

	_, err := f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: staff})

	requireCode(t, err, apperror.CodeDatabase)
	reg, _ := f.store.Registration(issued.RegistrationID)
	assert.Equal(t, models.StatusConfirmed, reg.Status)
	assert.Empty(t, f.store.CheckIns())

	// Safe to retry.
	_, err = f.checkIn.CheckIn(context.Background(), CheckInInput{Token: issued.Token, EventID: eventID, Staff: staff})
	assert.NoError(t, err)
}

func TestGuards_ByStatus(t *testing.T) {
	at := eventStart
	by := staffID
	tests := []struct {
		status     models.RegistrationStatus
		checkInErr apperror.Code
		cancelErr  apperror.Code
	}{
		{status: models.StatusConfirmed},
		{status: models.StatusCheckedIn, checkInErr: apperror.CodeAlreadyCheckedIn, cancelErr: apperror.CodeAlreadyCheckedIn},
		{status: models.StatusCancelled, checkInErr: apperror.CodeRegistrationCancelled, cancelErr: apperror.CodeAlreadyCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			reg := &models.Registration{ID: "r-1", Status: tt.status, CheckedInAt: &at, CheckedInBy: &by, CancelledAt: &at}

			if tt.checkInErr == "" {
				assert.NoError(t, checkInGuard(reg))
				assert.NoError(t, cancelGuard(reg))
				return
			}
			requireCode(t, checkInGuard(reg), tt.checkInErr)
			requireCode(t, cancelGuard(reg), tt.cancelErr)
		})
	}
}
