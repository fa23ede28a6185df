// Package model defines the core domain types for the campus event
// management system.
package model

import (
	"regexp"
	"strings"
	"time"
)

// EventType is the category tag an event is filed under. The set of valid
// types doubles as the key set of a user's preference map.
type EventType string

const (
	TypeSports     EventType = "sports"
	TypeAcademic   EventType = "academic"
	TypeSocial     EventType = "social"
	TypeCultural   EventType = "cultural"
	TypeTechnology EventType = "technology"
)

// EventTypes lists every valid event type.
var EventTypes = []EventType{TypeSports, TypeAcademic, TypeSocial, TypeCultural, TypeTechnology}

// ValidEventType reports whether t (case-insensitive) names a known type.
func ValidEventType(t string) bool {
	for _, et := range EventTypes {
		if string(et) == strings.ToLower(t) {
			return true
		}
	}
	return false
}

// Status is the lifecycle phase of an event. It is derived from the event
// date on every load, never stored as authoritative. The exception is
// StatusCancelled, which is sticky once set.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DeriveStatus computes an event's status from its date and the current
// time. A stored cancelled status always wins; otherwise events dated on
// the same calendar day as now are ongoing, earlier days completed, later
// days upcoming.
func DeriveStatus(date, now time.Time, stored Status) Status {
	if stored == StatusCancelled {
		return StatusCancelled
	}
	ey, em, ed := date.Date()
	ny, nm, nd := now.Date()
	switch {
	case ey == ny && em == nm && ed == nd:
		return StatusOngoing
	case date.Before(now):
		return StatusCompleted
	default:
		return StatusUpcoming
	}
}

// Venue gives the physical location details of an event.
type Venue struct {
	Building string `json:"building,omitempty"`
	Room     string `json:"room,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Organizer is the contact for an event.
type Organizer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Event represents a campus event with capacity-limited seating.
//
// Invariants maintained by the registration engine:
//
//	AvailableSeats == Capacity - len(Attendees), never negative
//	Attendees and Waitlist are disjoint, each free of duplicates
//	Attendees and Waitlist preserve registration order
type Event struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"` // "HH:MM AM/PM"
	Location       string    `json:"location"`
	Description    string    `json:"description,omitempty"`
	Type           EventType `json:"type"`
	Capacity       int       `json:"capacity"`
	AvailableSeats int       `json:"available_seats"`
	Attendees      []string  `json:"attendees"`
	Waitlist       []string  `json:"waitlist"`
	Status         Status    `json:"status"`
	Venue          Venue     `json:"venue"`
	Organizer      Organizer `json:"organizer"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - len(e.Attendees)
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.AvailableSeats <= 0
}

// IsAttendee reports whether the user holds a confirmed seat.
func (e *Event) IsAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

// IsWaitlisted reports whether the user is queued for a seat.
func (e *Event) IsWaitlisted(userID string) bool {
	for _, id := range e.Waitlist {
		if id == userID {
			return true
		}
	}
	return false
}

// Preferences maps event types to a user's interest flags.
type Preferences map[EventType]bool

// PreferredTypes returns the types the user has opted into.
func (p Preferences) PreferredTypes() []EventType {
	var types []EventType
	for _, t := range EventTypes {
		if p[t] {
			types = append(types, t)
		}
	}
	return types
}

// User represents an account. RegisteredEvents must always equal the set
// of events whose attendee list contains this user; the coordinator is
// responsible for that cross-entity invariant.
type User struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	PasswordHash     string      `json:"-"`
	Preferences      Preferences `json:"preferences"`
	IsAdmin          bool        `json:"is_admin"`
	RegisteredEvents []string    `json:"registered_events"`
	CreatedAt        time.Time   `json:"created_at"`
	LastLogin        time.Time   `json:"last_login"`
}

// HasRegistered reports whether eventID is in the user's confirmed set.
func (u *User) HasRegistered(eventID string) bool {
	for _, id := range u.RegisteredEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

var timeOfDayRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9] (AM|PM)$`)

// ValidTimeOfDay reports whether s matches the "HH:MM AM/PM" display format.
func ValidTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

// EventFilter narrows a ListEvents query. The zero value matches everything.
type EventFilter struct {
	Search string    // case-insensitive substring over name, location, description
	Type   EventType // exact type match
	Day    time.Time // events on this calendar day
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Capacity    int       `json:"capacity"`
	Venue       Venue     `json:"venue"`
	Organizer   Organizer `json:"organizer"`
}

// UpdateEventRequest is the payload for updating an event. Capacity changes
// are rejected when they would fall below the current attendee count.
type UpdateEventRequest struct {
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Capacity    int       `json:"capacity"`
	Venue       Venue     `json:"venue"`
	Organizer   Organizer `json:"organizer"`
	Cancelled   bool      `json:"cancelled"`
}

// SignupRequest is the payload for creating a user account.
type SignupRequest struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Preferences Preferences `json:"preferences"`
	IsAdmin     bool        `json:"is_admin"`
}

// LoginRequest is the payload for authenticating.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned from signup and login.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// RegistrationResponse summarises the outcome of a registration attempt.
// Waitlisted distinguishes the queued outcome from a confirmed seat; it is
// a success variant, not an error.
type RegistrationResponse struct {
	Event      *Event `json:"event"`
	Waitlisted bool   `json:"waitlisted"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
