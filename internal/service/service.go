// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/registration"
)

// ErrValidation wraps all input-validation failures.
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when a non-admin attempts an admin operation.
var ErrForbidden = errors.New("admin access required")

// ErrInvalidCredentials is returned for a failed login.
var ErrInvalidCredentials = errors.New("invalid email or password")

// EventStore is the persistence surface for events. Implemented by the
// Postgres repository, the in-memory store, and the Redis cache decorator.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest, createdBy string) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	ListByTypes(ctx context.Context, types []model.EventType, from time.Time) ([]model.Event, error)
	Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// UserStore is the persistence surface for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string, prefs model.Preferences, isAdmin bool) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs model.Preferences) error
	TouchLogin(ctx context.Context, id string) error
	ListConfirmedEvents(ctx context.Context, userID string, from time.Time) ([]model.Event, error)
}

// Coordinator commits registration transitions. Each call applies the
// event-side and user-side mutations as one atomic unit, serialized per
// event.
type Coordinator interface {
	Register(ctx context.Context, eventID, userID string) (*model.Event, registration.Outcome, error)
	Unregister(ctx context.Context, eventID, userID string) (*model.Event, error)
}

// Invalidator evicts cached event state after a registration commits.
type Invalidator interface {
	Invalidate(ctx context.Context, eventID string)
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

// startOfDay truncates t to midnight in its location. Event dates may be
// earlier today without counting as past.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
