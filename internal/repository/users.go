package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
)

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// CreateUser inserts a new user and returns it with a generated UUID.
// A duplicate email fails with ErrDuplicateEmail.
func (r *UserRepository) CreateUser(ctx context.Context, name, email, passwordHash string, prefs model.Preferences, isAdmin bool) (*model.User, error) {
	now := r.now().UTC()
	if prefs == nil {
		prefs = model.Preferences{}
	}
	user := &model.User{
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

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, preferences, is_admin, created_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Preferences,
		user.IsAdmin, user.CreatedAt, user.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetUserByID returns a single user or ErrNotFound.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByEmail returns a single user or ErrNotFound.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

func (r *UserRepository) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, preferences, is_admin, created_at, last_login
		 FROM users `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Preferences,
		&u.IsAdmin, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := r.loadRegisteredEvents(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// loadRegisteredEvents fills in the user's confirmed-event set. The
// attendee lists are the source of truth: when the user_events mirror has
// drifted (e.g. a half-applied write was rolled back out of band), the
// mirror is repaired from the attendee side before returning.
func (r *UserRepository) loadRegisteredEvents(ctx context.Context, u *model.User) error {
	// Read and rewrite inside one repeatable-read transaction. The delete
	// below only targets mirror rows visible in the snapshot, so a
	// registration committing concurrently keeps its fresh mirror row.
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin reconcile: %w", err)
	}
	defer tx.Rollback(ctx)

	mirrored, err := queryIDs(ctx, tx,
		`SELECT event_id FROM user_events WHERE user_id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("load user events: %w", err)
	}
	authoritative, err := queryIDs(ctx, tx,
		`SELECT event_id FROM event_attendees WHERE user_id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("load attendee events: %w", err)
	}

	u.RegisteredEvents = authoritative
	if sameSet(mirrored, authoritative) {
		return nil
	}

	// Reconcile: rewrite the mirror from the attendee lists. A concurrent
	// coordinator commit makes this transaction lose the serialization
	// race; the repair is then skipped and the next read retries it.
	if _, err := tx.Exec(ctx, `DELETE FROM user_events WHERE user_id = $1`, u.ID); err != nil {
		if isRetryable(err) {
			return nil
		}
		return fmt.Errorf("reconcile user events: %w", err)
	}
	for _, eventID := range authoritative {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_events (user_id, event_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			u.ID, eventID); err != nil {
			if isRetryable(err) {
				return nil
			}
			return fmt.Errorf("reconcile user events: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			return nil
		}
		return fmt.Errorf("commit reconcile: %w", err)
	}
	return nil
}

// UpdatePreferences replaces the user's preference map.
func (r *UserRepository) UpdatePreferences(ctx context.Context, id string, prefs model.Preferences) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET preferences = $2 WHERE id = $1`, id, prefs)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLogin records a successful login.
func (r *UserRepository) TouchLogin(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET last_login = $2 WHERE id = $1`, id, r.now().UTC())
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

// ListConfirmedEvents returns the user's confirmed future events sorted by
// date ascending, read through the authoritative attendee lists.
func (r *UserRepository) ListConfirmedEvents(ctx context.Context, userID string, from time.Time) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events e
		 JOIN event_attendees a ON a.event_id = e.id
		 WHERE a.user_id = $1 AND e.date >= $2
		 ORDER BY e.date ASC`,
		userID, from,
	)
	if err != nil {
		return nil, fmt.Errorf("list confirmed events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range events {
		if err := loadEventLists(ctx, r.db, &events[i]); err != nil {
			return nil, err
		}
	}
	deriveStatuses(events, r.now())
	return events, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}
