package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/registration"
)

// MemoryStore is a map-backed implementation of the event store, user
// store, and registration coordinator. It backs tests and the
// STORAGE_BACKEND=memory development mode.
//
// Serialization mirrors the Postgres backend: every mutation of one event
// runs under that event's mutex, so racing registrations for the same
// event are totally ordered while different events proceed in parallel.
// The paired user-side mutation happens under the same critical section,
// which is this backend's transaction boundary.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*memEvent
	users  map[string]*model.User

	// Now is the clock; tests override it to pin event status.
	Now func() time.Time
}

type memEvent struct {
	mu sync.Mutex
	ev model.Event
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*memEvent),
		users:  make(map[string]*model.User),
		Now:    time.Now,
	}
}

// ── Event store ──────────────────────────────────────────────────────────

// Create inserts a new event with available seats equal to capacity.
func (s *MemoryStore) Create(ctx context.Context, req model.CreateEventRequest, createdBy string) (*model.Event, error) {
	now := s.Now().UTC()
	ev := model.Event{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Date:           req.Date,
		Time:           req.Time,
		Location:       req.Location,
		Description:    req.Description,
		Type:           model.EventType(req.Type),
		Capacity:       req.Capacity,
		AvailableSeats: req.Capacity,
		Attendees:      []string{},
		Waitlist:       []string{},
		Status:         model.StatusUpcoming,
		Venue:          req.Venue,
		Organizer:      req.Organizer,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	s.events[ev.ID] = &memEvent{ev: ev}
	s.mu.Unlock()

	out := cloneEvent(&ev)
	out.Status = model.DeriveStatus(out.Date, s.Now(), out.Status)
	return out, nil
}

// GetByID returns a copy of the event or ErrNotFound.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	me, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	me.mu.Lock()
	out := cloneEvent(&me.ev)
	me.mu.Unlock()
	out.Status = model.DeriveStatus(out.Date, s.Now(), out.Status)
	return out, nil
}

// List returns events matching the filter, sorted by date ascending.
func (s *MemoryStore) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	return s.collect(func(ev *model.Event) bool {
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(ev.Name), q) &&
				!strings.Contains(strings.ToLower(ev.Location), q) &&
				!strings.Contains(strings.ToLower(ev.Description), q) {
				return false
			}
		}
		if filter.Type != "" && ev.Type != filter.Type {
			return false
		}
		if !filter.Day.IsZero() {
			fy, fm, fd := filter.Day.Date()
			ey, em, ed := ev.Date.Date()
			if fy != ey || fm != em || fd != ed {
				return false
			}
		}
		return true
	}), nil
}

// ListByTypes returns future, non-cancelled events of the given types.
func (s *MemoryStore) ListByTypes(ctx context.Context, types []model.EventType, from time.Time) ([]model.Event, error) {
	wanted := map[model.EventType]bool{}
	for _, t := range types {
		wanted[t] = true
	}
	return s.collect(func(ev *model.Event) bool {
		return wanted[ev.Type] && !ev.Date.Before(from) && ev.Status != model.StatusCancelled
	}), nil
}

func (s *MemoryStore) collect(match func(*model.Event) bool) []model.Event {
	s.mu.RLock()
	all := make([]*memEvent, 0, len(s.events))
	for _, me := range s.events {
		all = append(all, me)
	}
	s.mu.RUnlock()

	events := []model.Event{}
	for _, me := range all {
		me.mu.Lock()
		ev := cloneEvent(&me.ev)
		me.mu.Unlock()
		if match(ev) {
			events = append(events, *ev)
		}
	}
	sortByDate(events)
	deriveStatuses(events, s.Now())
	return events
}

// Update applies an administrative update under the event's lock.
func (s *MemoryStore) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	me, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	if err := registration.ApplyCapacity(&me.ev, req.Capacity); err != nil {
		return nil, err
	}
	me.ev.Name = req.Name
	me.ev.Date = req.Date
	me.ev.Time = req.Time
	me.ev.Location = req.Location
	me.ev.Description = req.Description
	me.ev.Type = model.EventType(req.Type)
	me.ev.Venue = req.Venue
	me.ev.Organizer = req.Organizer
	if req.Cancelled {
		me.ev.Status = model.StatusCancelled
	}
	me.ev.UpdatedAt = s.Now().UTC()

	out := cloneEvent(&me.ev)
	out.Status = model.DeriveStatus(out.Date, s.Now(), out.Status)
	return out, nil
}

// Delete removes the event and every user-side reference to it.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	for _, u := range s.users {
		u.RegisteredEvents = removeID(u.RegisteredEvents, id)
	}
	return nil
}

// ── Registration coordinator ─────────────────────────────────────────────

// Register transitions (event, user) to confirmed or waitlisted. The event
// mutation and the user's registeredEvents update commit inside the same
// per-event critical section.
func (s *MemoryStore) Register(ctx context.Context, eventID, userID string) (*model.Event, registration.Outcome, error) {
	me, err := s.lookup(eventID)
	if err != nil {
		return nil, "", err
	}
	if !s.userExists(userID) {
		return nil, "", ErrNotFound
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	ch, err := registration.Register(&me.ev, userID, s.Now())
	if err != nil {
		return nil, "", err
	}
	if ch.AddEvent != "" {
		s.addUserEvent(ch.AddEvent, eventID)
	}

	out := cloneEvent(&me.ev)
	out.Status = model.DeriveStatus(out.Date, s.Now(), out.Status)
	return out, ch.Outcome, nil
}

// Unregister frees the user's seat and promotes the waitlist head, if any,
// in the same critical section.
func (s *MemoryStore) Unregister(ctx context.Context, eventID, userID string) (*model.Event, error) {
	me, err := s.lookup(eventID)
	if err != nil {
		return nil, err
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	ch, err := registration.Unregister(&me.ev, userID, s.Now())
	if err != nil {
		return nil, err
	}
	if ch.RemoveEvent != "" {
		s.removeUserEvent(ch.RemoveEvent, eventID)
	}
	if ch.Promoted != "" {
		s.addUserEvent(ch.Promoted, eventID)
	}

	out := cloneEvent(&me.ev)
	out.Status = model.DeriveStatus(out.Date, s.Now(), out.Status)
	return out, nil
}

// ── User store ───────────────────────────────────────────────────────────

// CreateUser inserts a new account or fails with ErrDuplicateEmail.
func (s *MemoryStore) CreateUser(ctx context.Context, name, email, passwordHash string, prefs model.Preferences, isAdmin bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	if prefs == nil {
		prefs = model.Preferences{}
	}
	now := s.Now().UTC()
	u := &model.User{
		ID:               uuid.New().String(),
		Name:             name,
		Email:            email,
		PasswordHash:     passwordHash,
		Preferences:      prefs,
		IsAdmin:          isAdmin,
		RegisteredEvents: []string{},
		CreatedAt:        now,
		LastLogin:        now,
	}
	s.users[u.ID] = u
	return cloneUser(u), nil
}

// GetUserByID returns a copy of the user or ErrNotFound. The returned
// registeredEvents set is re-derived from the authoritative attendee
// lists, repairing any drift in the stored mirror.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	_, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	derived := s.deriveUserEvents(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.RegisteredEvents = derived
	return cloneUser(u), nil
}

// GetUserByEmail returns a copy of the user or ErrNotFound.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	var id string
	for _, u := range s.users {
		if u.Email == email {
			id = u.ID
			break
		}
	}
	s.mu.RUnlock()
	if id == "" {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

// UpdatePreferences replaces the user's preference map.
func (s *MemoryStore) UpdatePreferences(ctx context.Context, id string, prefs model.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Preferences = prefs
	return nil
}

// TouchLogin records a successful login.
func (s *MemoryStore) TouchLogin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = s.Now().UTC()
	return nil
}

// ListConfirmedEvents returns the user's confirmed future events sorted by
// date ascending.
func (s *MemoryStore) ListConfirmedEvents(ctx context.Context, userID string, from time.Time) ([]model.Event, error) {
	return s.collect(func(ev *model.Event) bool {
		return ev.IsAttendee(userID) && !ev.Date.Before(from)
	}), nil
}

// ── internals ────────────────────────────────────────────────────────────

func (s *MemoryStore) lookup(eventID string) (*memEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	me, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return me, nil
}

func (s *MemoryStore) userExists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok
}

func (s *MemoryStore) addUserEvent(userID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return
	}
	if !u.HasRegistered(eventID) {
		u.RegisteredEvents = append(u.RegisteredEvents, eventID)
	}
}

func (s *MemoryStore) removeUserEvent(userID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.RegisteredEvents = removeID(u.RegisteredEvents, eventID)
	}
}

// deriveUserEvents rebuilds a registeredEvents set from the attendee
// lists. Event locks are taken one at a time, never under s.mu: the only
// permitted nesting is an event lock around s.mu (the registration path),
// so the reverse order here would deadlock.
func (s *MemoryStore) deriveUserEvents(userID string) []string {
	s.mu.RLock()
	all := make([]*memEvent, 0, len(s.events))
	for _, me := range s.events {
		all = append(all, me)
	}
	s.mu.RUnlock()

	ids := []string{}
	for _, me := range all {
		me.mu.Lock()
		if me.ev.IsAttendee(userID) {
			ids = append(ids, me.ev.ID)
		}
		me.mu.Unlock()
	}
	return ids
}

func cloneEvent(e *model.Event) *model.Event {
	out := *e
	out.Attendees = append([]string(nil), e.Attendees...)
	out.Waitlist = append([]string(nil), e.Waitlist...)
	return &out
}

func cloneUser(u *model.User) *model.User {
	out := *u
	out.RegisteredEvents = append([]string(nil), u.RegisteredEvents...)
	out.Preferences = model.Preferences{}
	for k, v := range u.Preferences {
		out.Preferences[k] = v
	}
	return &out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortByDate(events []model.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}
