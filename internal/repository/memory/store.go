// Package memory is an in-process implementation of the repository
// contracts. Transactions are serialized by a single lock and applied to a
// working copy that is discarded on error, which gives the same
// all-or-nothing and row-lock guarantees as the postgres store.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/models"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
)

type state struct {
	events        map[string]models.Event
	ticketTypes   map[string]models.TicketType
	registrations map[string]models.Registration
	checkIns      []models.CheckIn
	staff         map[staffKey]struct{}
}

type staffKey struct {
	eventID string
	userID  string
}

func (s *state) clone() *state {
	return &state{
		events:        maps.Clone(s.events),
		ticketTypes:   maps.Clone(s.ticketTypes),
		registrations: maps.Clone(s.registrations),
		checkIns:      append([]models.CheckIn(nil), s.checkIns...),
		staff:         maps.Clone(s.staff),
	}
}

type Store struct {
	mu sync.Mutex
	st *state

	// FailCommit, when set, makes the next transaction fail after fn
	// succeeds. Used to exercise rollback paths.
	FailCommit error
}

func NewStore() *Store {
	return &Store{st: &state{
		events:        map[string]models.Event{},
		ticketTypes:   map[string]models.TicketType{},
		registrations: map[string]models.Registration{},
		staff:         map[staffKey]struct{}{},
	}}
}

func (s *Store) Events() repository.EventRepository {
	return eventRepo{s}
}

func (s *Store) TicketTypes() repository.TicketTypeRepository {
	return ticketTypeRepo{s}
}

func (s *Store) Registrations() repository.RegistrationRepository {
	return registrationRepo{s}
}

func (s *Store) Staff() repository.StaffRepository {
	return staffRepo{s}
}

func (s *Store) PutEvent(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.events[e.ID] = e
}

func (s *Store) PutTicketType(tt models.TicketType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.ticketTypes[tt.ID] = tt
}

func (s *Store) PutRegistration(r models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.registrations[r.ID] = r
}

func (s *Store) AssignStaff(eventID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.staff[staffKey{eventID, userID}] = struct{}{}
}

func (s *Store) TicketType(id string) (models.TicketType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tt, ok := s.st.ticketTypes[id]
	return tt, ok
}

func (s *Store) Registration(id string) (models.Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.registrations[id]
	return r, ok
}

func (s *Store) RegistrationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.registrations)
}

func (s *Store) CheckIns() []models.CheckIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CheckIn(nil), s.st.checkIns...)
}

type eventRepo struct{ s *Store }

func (r eventRepo) FindByID(_ context.Context, id string) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.st.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r eventRepo) Upsert(_ context.Context, event *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.s.st.events[event.ID]; ok {
		event.CreatedAt = existing.CreatedAt
	} else {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	r.s.st.events[event.ID] = *event
	return nil
}

type ticketTypeRepo struct{ s *Store }

func (r ticketTypeRepo) FindByID(_ context.Context, id string) (*models.TicketType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tt, ok := r.s.st.ticketTypes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tt, nil
}

func (r ticketTypeRepo) Upsert(_ context.Context, tt *models.TicketType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.s.st.ticketTypes[tt.ID]; ok {
		available := existing.Available + tt.Quantity - existing.Quantity
		if available < 0 {
			return repository.ErrQuantityBelowSold
		}
		existing.Name = tt.Name
		existing.Price = tt.Price
		existing.Quantity = tt.Quantity
		existing.Available = available
		existing.UpdatedAt = now
		r.s.st.ticketTypes[tt.ID] = existing
		*tt = existing
		return nil
	}
	tt.Available = tt.Quantity
	tt.CreatedAt = now
	tt.UpdatedAt = now
	r.s.st.ticketTypes[tt.ID] = *tt
	return nil
}

type staffRepo struct{ s *Store }

func (r staffRepo) IsAssigned(_ context.Context, eventID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.st.staff[staffKey{eventID, userID}]
	return ok, nil
}

type registrationRepo struct{ s *Store }

func (r registrationRepo) FindByID(_ context.Context, id string) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.st.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &reg, nil
}

func (r registrationRepo) FindByIDAndEvent(_ context.Context, id, eventID string) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.st.registrations[id]
	if !ok || reg.EventID != eventID {
		return nil, repository.ErrNotFound
	}
	return &reg, nil
}

func (r registrationRepo) FindActive(_ context.Context, eventID, userID, ticketTypeID string) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if reg, ok := findActive(r.s.st, eventID, userID, ticketTypeID); ok {
		return &reg, nil
	}
	return nil, repository.ErrNotFound
}

func (r registrationRepo) CountActiveByEvent(_ context.Context, eventID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, reg := range r.s.st.registrations {
		if reg.EventID == eventID && reg.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r registrationRepo) Transaction(ctx context.Context, fn func(tx repository.RegistrationTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	work := r.s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.s.FailCommit != nil {
		err := r.s.FailCommit
		r.s.FailCommit = nil
		return err
	}
	r.s.st = work
	return nil
}

func findActive(st *state, eventID, userID, ticketTypeID string) (models.Registration, bool) {
	for _, reg := range st.registrations {
		if reg.EventID == eventID && reg.UserID == userID && reg.TicketTypeID == ticketTypeID && reg.IsActive() {
			return reg, true
		}
	}
	return models.Registration{}, false
}

type tx struct {
	st *state
}

func (t *tx) LockTicketType(_ context.Context, id string) (*models.TicketType, error) {
	tt, ok := t.st.ticketTypes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tt, nil
}

func (t *tx) DecrementAvailable(_ context.Context, ticketTypeID string) error {
	tt, ok := t.st.ticketTypes[ticketTypeID]
	if !ok || tt.Available <= 0 {
		return repository.ErrNoneAvailable
	}
	tt.Available--
	t.st.ticketTypes[ticketTypeID] = tt
	return nil
}

func (t *tx) IncrementAvailable(_ context.Context, ticketTypeID string) error {
	tt, ok := t.st.ticketTypes[ticketTypeID]
	if !ok || tt.Available >= tt.Quantity {
		return repository.ErrInventoryFull
	}
	tt.Available++
	t.st.ticketTypes[ticketTypeID] = tt
	return nil
}

// Create enforces the same partial uniqueness as the postgres index.
func (t *tx) Create(_ context.Context, reg *models.Registration) error {
	if _, ok := findActive(t.st, reg.EventID, reg.UserID, reg.TicketTypeID); ok {
		return repository.ErrDuplicate
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.Status == "" {
		reg.Status = models.StatusConfirmed
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	t.st.registrations[reg.ID] = *reg
	return nil
}

func (t *tx) UpdateToken(_ context.Context, id, token string) error {
	reg, ok := t.st.registrations[id]
	if !ok {
		return repository.ErrNotFound
	}
	reg.SignedToken = token
	t.st.registrations[id] = reg
	return nil
}

func (t *tx) LockRegistration(_ context.Context, id string) (*models.Registration, error) {
	reg, ok := t.st.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &reg, nil
}

func (t *tx) MarkCheckedIn(_ context.Context, id string, at time.Time, staffID string) error {
	reg, ok := t.st.registrations[id]
	if !ok || reg.Status != models.StatusConfirmed {
		return repository.ErrStatusChanged
	}
	reg.Status = models.StatusCheckedIn
	reg.CheckedInAt = &at
	reg.CheckedInBy = &staffID
	reg.UpdatedAt = at
	t.st.registrations[id] = reg
	return nil
}

func (t *tx) MarkCancelled(_ context.Context, id string, at time.Time) error {
	reg, ok := t.st.registrations[id]
	if !ok || reg.Status != models.StatusConfirmed {
		return repository.ErrStatusChanged
	}
	reg.Status = models.StatusCancelled
	reg.CancelledAt = &at
	reg.UpdatedAt = at
	t.st.registrations[id] = reg
	return nil
}

func (t *tx) CreateCheckIn(_ context.Context, checkIn *models.CheckIn) error {
	if checkIn.ID == "" {
		checkIn.ID = uuid.NewString()
	}
	t.st.checkIns = append(t.st.checkIns, *checkIn)
	return nil
}
