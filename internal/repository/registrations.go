package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/registration"
)

// maxTxAttempts bounds retries on serialization failures. Mutations are
// never blindly retried beyond this; the caller sees ErrConflict.
const maxTxAttempts = 3

// RegistrationRepository commits registration state transitions. It is the
// consistency coordinator for the Postgres backend: the event-side rows
// (events, event_attendees, event_waitlist) and the user-side row
// (user_events) are written in one transaction, or not at all.
//
// Concurrency: the transaction acquires a row-level exclusive lock on the
// event with SELECT ... FOR UPDATE before reading the seat counter. Racing
// registrations for the same event therefore serialize at the database,
// and the capacity invariant can never be transiently violated: two
// goroutines cannot both observe the last free seat. Operations on
// different events proceed fully in parallel.
type RegistrationRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db, now: time.Now}
}

// Register transitions (event, user) to confirmed or waitlisted under the
// event's row lock. The returned outcome distinguishes the two success
// variants.
func (r *RegistrationRepository) Register(ctx context.Context, eventID, userID string) (*model.Event, registration.Outcome, error) {
	var (
		ev  *model.Event
		out registration.Outcome
	)
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		e, err := r.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := r.checkUser(ctx, tx, userID); err != nil {
			return err
		}

		ch, err := registration.Register(e, userID, r.now())
		if err != nil {
			return err
		}

		switch ch.Outcome {
		case registration.Confirmed:
			if err := insertAttendee(ctx, tx, eventID, userID, r.now().UTC()); err != nil {
				return err
			}
			// Paired mutation: the user's registeredEvents gains the
			// event in the same transaction.
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_events (user_id, event_id) VALUES ($1, $2)`,
				userID, eventID); err != nil {
				return fmt.Errorf("insert user event: %w", err)
			}
		case registration.Waitlisted:
			if _, err := tx.Exec(ctx,
				`INSERT INTO event_waitlist (event_id, user_id, position, queued_at)
				 SELECT $1, $2, COALESCE(MAX(position), 0) + 1, $3
				 FROM event_waitlist WHERE event_id = $1`,
				eventID, userID, r.now().UTC()); err != nil {
				return fmt.Errorf("insert waitlist entry: %w", err)
			}
		}

		if err := updateSeats(ctx, tx, e, r.now().UTC()); err != nil {
			return err
		}
		ev, out = e, ch.Outcome
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	ev.Status = model.DeriveStatus(ev.Date, r.now(), ev.Status)
	return ev, out, nil
}

// Unregister removes the user's confirmed seat and, when a waitlist
// exists, promotes its head into the seat within the same transaction, so
// the seat is never observably free in between.
func (r *RegistrationRepository) Unregister(ctx context.Context, eventID, userID string) (*model.Event, error) {
	var ev *model.Event
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		e, err := r.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		ch, err := registration.Unregister(e, userID, r.now())
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`,
			eventID, userID); err != nil {
			return fmt.Errorf("delete attendee: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_events WHERE user_id = $1 AND event_id = $2`,
			userID, eventID); err != nil {
			return fmt.Errorf("delete user event: %w", err)
		}

		if ch.Promoted != "" {
			if _, err := tx.Exec(ctx,
				`DELETE FROM event_waitlist WHERE event_id = $1 AND user_id = $2`,
				eventID, ch.Promoted); err != nil {
				return fmt.Errorf("dequeue waitlist head: %w", err)
			}
			if err := insertAttendee(ctx, tx, eventID, ch.Promoted, r.now().UTC()); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_events (user_id, event_id) VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`,
				ch.Promoted, eventID); err != nil {
				return fmt.Errorf("insert promoted user event: %w", err)
			}
		}

		if err := updateSeats(ctx, tx, e, r.now().UTC()); err != nil {
			return err
		}
		ev = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev.Status = model.DeriveStatus(ev.Date, r.now(), ev.Status)
	return ev, nil
}

// inTx runs fn in a transaction, retrying serialization and deadlock
// failures up to maxTxAttempts before surfacing ErrConflict. Domain errors
// pass through untouched and are never retried.
func (r *RegistrationRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = func() error {
			tx, err := r.db.Begin(ctx)
			if err != nil {
				return fmt.Errorf("begin transaction: %w", err)
			}
			defer tx.Rollback(ctx)

			if err := fn(tx); err != nil {
				return err
			}
			if err := tx.Commit(ctx); err != nil {
				return fmt.Errorf("commit transaction: %w", err)
			}
			return nil
		}()
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

// lockEvent acquires the row-level exclusive lock that serializes all
// registration traffic for one event, then loads the full snapshot.
func (r *RegistrationRepository) lockEvent(ctx context.Context, tx pgx.Tx, eventID string) (*model.Event, error) {
	e, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	if err := loadEventLists(ctx, tx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *RegistrationRepository) checkUser(ctx context.Context, tx pgx.Tx, userID string) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func insertAttendee(ctx context.Context, tx pgx.Tx, eventID, userID string, at time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO event_attendees (event_id, user_id, position, registered_at)
		 SELECT $1, $2, COALESCE(MAX(position), 0) + 1, $3
		 FROM event_attendees WHERE event_id = $1`,
		eventID, userID, at)
	if err != nil {
		return fmt.Errorf("insert attendee: %w", err)
	}
	return nil
}

func updateSeats(ctx context.Context, tx pgx.Tx, e *model.Event, at time.Time) error {
	e.UpdatedAt = at
	_, err := tx.Exec(ctx,
		`UPDATE events SET available_seats = $2, updated_at = $3 WHERE id = $1`,
		e.ID, e.AvailableSeats, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update seat count: %w", err)
	}
	return nil
}
