// Package repository implements persistence for the campus event system.
// It uses pgx directly (no ORM) for transparency and performance.
//
// Two backends live here: the PostgreSQL repositories used in production,
// and an in-memory store (memory.go) with the same behavior for tests and
// local development. Both serialize all mutations of a single event: the
// Postgres backend with SELECT ... FOR UPDATE row locks, the in-memory
// backend with a per-event mutex.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an account with the email already exists.
var ErrDuplicateEmail = errors.New("email already in use")

// ErrConflict is returned when a mutation lost a concurrency conflict after
// bounded retries. Callers may retry the whole operation.
var ErrConflict = errors.New("conflicting concurrent update")

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so read helpers
// can run inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const eventColumns = `id, name, date, time_of_day, location, description, type,
	capacity, available_seats, status, venue, organizer, created_by, created_at, updated_at`

// scanEvent reads one events row. Attendee and waitlist columns live in
// separate tables and are filled in by loadEventLists.
func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var createdBy *string
	err := row.Scan(
		&e.ID, &e.Name, &e.Date, &e.Time, &e.Location, &e.Description, &e.Type,
		&e.Capacity, &e.AvailableSeats, &e.Status, &e.Venue, &e.Organizer,
		&createdBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	return &e, nil
}

// loadEventLists populates the ordered attendee and waitlist slices.
func loadEventLists(ctx context.Context, q querier, e *model.Event) error {
	var err error
	e.Attendees, err = queryIDs(ctx, q,
		`SELECT user_id FROM event_attendees WHERE event_id = $1 ORDER BY position`, e.ID)
	if err != nil {
		return fmt.Errorf("load attendees: %w", err)
	}
	e.Waitlist, err = queryIDs(ctx, q,
		`SELECT user_id FROM event_waitlist WHERE event_id = $1 ORDER BY position`, e.ID)
	if err != nil {
		return fmt.Errorf("load waitlist: %w", err)
	}
	return nil
}

func queryIDs(ctx context.Context, q querier, sql string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// deriveStatuses recomputes each event's status from the wall clock before
// it leaves the repository. Cancelled stays cancelled.
func deriveStatuses(events []model.Event, now time.Time) {
	for i := range events {
		events[i].Status = model.DeriveStatus(events[i].Date, now, events[i].Status)
	}
}

// isRetryable reports whether the postgres error is a serialization or
// deadlock failure worth retrying.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
