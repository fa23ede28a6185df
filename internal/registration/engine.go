// Package registration implements the state machine governing attendee and
// waitlist transitions for a single event.
//
// The engine operates on in-memory snapshots and performs no I/O. A store
// loads the event under whatever serialization it provides (a row lock, a
// per-event mutex), lets the engine compute the transition, and persists
// the mutated snapshot together with the user-side writes described by the
// returned Change. Per-event serialization around the engine call is what
// keeps the capacity invariant from being violated under concurrent
// registrations.
package registration

import (
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
)

// ErrAlreadyRegistered is returned when the user already holds a seat or a
// waitlist spot for the event.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrNotRegistered is returned when the user holds no confirmed seat.
var ErrNotRegistered = errors.New("not registered for this event")

// ErrEventInPast is returned for registration changes on past events.
var ErrEventInPast = errors.New("event is in the past")

// ErrEventCancelled is returned for registrations on cancelled events.
var ErrEventCancelled = errors.New("event is cancelled")

// ErrCapacityBelowAttendance is returned when a capacity update would drop
// below the current attendee count.
var ErrCapacityBelowAttendance = errors.New("capacity cannot be reduced below current attendee count")

// Outcome is the success variant of a registration attempt.
type Outcome string

const (
	// Confirmed means the user won a seat.
	Confirmed Outcome = "confirmed"
	// Waitlisted means the event was full and the user joined the queue.
	// This is an expected outcome, not a fault.
	Waitlisted Outcome = "waitlisted"
)

// Change describes the user-side mutations that must be committed in the
// same atomic unit as the event snapshot. Empty fields mean no change for
// that user.
type Change struct {
	Outcome Outcome

	// AddEvent is the user whose registeredEvents gains the event
	// (the registrant on a confirmed register, never on waitlist).
	AddEvent string

	// RemoveEvent is the user whose registeredEvents loses the event.
	RemoveEvent string

	// Promoted is the waitlist head moved into attendees by unregister.
	// Their registeredEvents gains the event as part of the same unit.
	Promoted string
}

// Register transitions (event, user) from unregistered to confirmed when a
// seat is free, or to waitlisted when the event is full. The event snapshot
// is mutated in place; callers must persist it together with the Change.
func Register(ev *model.Event, userID string, now time.Time) (Change, error) {
	if model.DeriveStatus(ev.Date, now, ev.Status) == model.StatusCancelled {
		return Change{}, ErrEventCancelled
	}
	if ev.Date.Before(now) {
		return Change{}, ErrEventInPast
	}
	if ev.IsAttendee(userID) || ev.IsWaitlisted(userID) {
		return Change{}, ErrAlreadyRegistered
	}

	if ev.AvailableSeats <= 0 {
		// Full: queue behind everyone already waiting.
		ev.Waitlist = append(ev.Waitlist, userID)
		return Change{Outcome: Waitlisted}, nil
	}

	ev.Attendees = append(ev.Attendees, userID)
	ev.AvailableSeats--
	return Change{Outcome: Confirmed, AddEvent: userID}, nil
}

// Unregister removes a confirmed user and, when the waitlist is non-empty,
// promotes its head into the vacated seat. Promotion is part of the same
// atomic unit: the seat never appears free to outside observers.
func Unregister(ev *model.Event, userID string, now time.Time) (Change, error) {
	if ev.Date.Before(now) {
		return Change{}, ErrEventInPast
	}

	idx := -1
	for i, id := range ev.Attendees {
		if id == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Change{}, ErrNotRegistered
	}

	ev.Attendees = append(ev.Attendees[:idx], ev.Attendees[idx+1:]...)
	ev.AvailableSeats++

	ch := Change{Outcome: Confirmed, RemoveEvent: userID}
	if len(ev.Waitlist) > 0 {
		// FIFO promotion: the longest-waiting user takes the seat.
		next := ev.Waitlist[0]
		ev.Waitlist = append([]string(nil), ev.Waitlist[1:]...)
		ev.Attendees = append(ev.Attendees, next)
		ev.AvailableSeats--
		ch.Promoted = next
	}
	return ch, nil
}

// ApplyCapacity sets a new capacity, preserving the invariant that every
// confirmed attendee keeps their seat. Reductions below the current
// attendee count are rejected rather than silently truncated.
func ApplyCapacity(ev *model.Event, capacity int) error {
	if capacity < len(ev.Attendees) {
		return ErrCapacityBelowAttendance
	}
	ev.Capacity = capacity
	ev.AvailableSeats = capacity - len(ev.Attendees)
	return nil
}
