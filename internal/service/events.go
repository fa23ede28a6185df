package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/registration"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/repository"
)

// EventService orchestrates event browsing, administration, and
// registration.
type EventService struct {
	events EventStore
	users  UserStore
	reg    Coordinator
	inval  Invalidator
	log    *zap.Logger
	now    func() time.Time
}

// NewEventService constructs an EventService. inval may be nil when no
// cache is wired.
func NewEventService(events EventStore, users UserStore, reg Coordinator, inval Invalidator, log *zap.Logger) *EventService {
	return &EventService{
		events: events,
		users:  users,
		reg:    reg,
		inval:  inval,
		log:    log.Named("events"),
		now:    time.Now,
	}
}

// ListEvents returns events matching the filter, sorted by date ascending.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	if filter.Type != "" && !model.ValidEventType(string(filter.Type)) {
		return nil, validationErr("unknown event type %q", filter.Type)
	}
	filter.Type = model.EventType(strings.ToLower(string(filter.Type)))
	return s.events.List(ctx, filter)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, validationErr("event id is required")
	}
	return s.events.GetByID(ctx, id)
}

// CreateEvent validates the request and creates the event. Admin only.
func (s *EventService) CreateEvent(ctx context.Context, actorID string, req model.CreateEventRequest) (*model.Event, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := validateEventFields(req.Name, req.Date, req.Time, req.Location, req.Description, req.Type, req.Capacity, s.now()); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	req.Type = strings.ToLower(req.Type)

	ev, err := s.events.Create(ctx, req, actorID)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event created",
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.Int("capacity", ev.Capacity))
	return ev, nil
}

// UpdateEvent validates and applies an administrative update. Capacity may
// not drop below the current attendee count.
func (s *EventService) UpdateEvent(ctx context.Context, actorID, id string, req model.UpdateEventRequest) (*model.Event, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := validateEventFields(req.Name, req.Date, req.Time, req.Location, req.Description, req.Type, req.Capacity, s.now()); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	req.Type = strings.ToLower(req.Type)

	ev, err := s.events.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) ||
			errors.Is(err, registration.ErrCapacityBelowAttendance) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.log.Info("event updated", zap.String("event_id", id))
	return ev, nil
}

// DeleteEvent removes an event and all of its registrations. Admin only.
func (s *EventService) DeleteEvent(ctx context.Context, actorID, id string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	if s.inval != nil {
		s.inval.Invalidate(ctx, id)
	}
	s.log.Info("event deleted", zap.String("event_id", id))
	return nil
}

// Register attempts to confirm a seat for the user, waitlisting them when
// the event is full. Both outcomes are successes; the response's
// Waitlisted flag tells them apart.
func (s *EventService) Register(ctx context.Context, userID, eventID string) (*model.RegistrationResponse, error) {
	if userID == "" || eventID == "" {
		return nil, validationErr("user id and event id are required")
	}

	ev, outcome, err := s.reg.Register(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if s.inval != nil {
		s.inval.Invalidate(ctx, eventID)
	}
	s.log.Info("registration",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
		zap.String("outcome", string(outcome)))
	return &model.RegistrationResponse{
		Event:      ev,
		Waitlisted: outcome == registration.Waitlisted,
	}, nil
}

// Unregister frees the user's confirmed seat; the longest-waiting
// waitlisted user, if any, is promoted into it atomically.
func (s *EventService) Unregister(ctx context.Context, userID, eventID string) (*model.Event, error) {
	if userID == "" || eventID == "" {
		return nil, validationErr("user id and event id are required")
	}

	ev, err := s.reg.Unregister(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if s.inval != nil {
		s.inval.Invalidate(ctx, eventID)
	}
	s.log.Info("unregistration",
		zap.String("event_id", eventID),
		zap.String("user_id", userID))
	return ev, nil
}

// ListUserConfirmedEvents returns the user's confirmed future events,
// sorted by date ascending.
func (s *EventService) ListUserConfirmedEvents(ctx context.Context, userID string) ([]model.Event, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.users.ListConfirmedEvents(ctx, userID, s.now())
}

// ListEventsForUserPreferences returns future events matching the user's
// preferred types. An empty preference set yields an empty list.
func (s *EventService) ListEventsForUserPreferences(ctx context.Context, userID string) ([]model.Event, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.events.ListByTypes(ctx, user.Preferences.PreferredTypes(), s.now())
}

func (s *EventService) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func validateEventFields(name string, date time.Time, timeOfDay, location, description, typ string, capacity int, now time.Time) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return validationErr("event name is required")
	case len(name) > 100:
		return validationErr("event name cannot exceed 100 characters")
	case date.IsZero():
		return validationErr("event date is required")
	case date.Before(startOfDay(now)):
		return validationErr("event date cannot be in the past")
	case !model.ValidTimeOfDay(timeOfDay):
		return validationErr("time must be in format HH:MM AM/PM")
	case strings.TrimSpace(location) == "":
		return validationErr("event location is required")
	case len(description) > 1000:
		return validationErr("description cannot exceed 1000 characters")
	case !model.ValidEventType(typ):
		return validationErr("unknown event type %q", typ)
	case capacity < 1:
		return validationErr("capacity must be at least 1")
	case capacity > 1000:
		return validationErr("capacity cannot exceed 1000")
	}
	return nil
}
