package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/registration"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

// Create inserts a new event and returns it with a generated UUID.
// Available seats start equal to capacity.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest, createdBy string) (*model.Event, error) {
	now := r.now().UTC()
	event := &model.Event{
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

	var createdByArg *string
	if createdBy != "" {
		createdByArg = &createdBy
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, date, time_of_day, location, description, type,
		                     capacity, available_seats, status, venue, organizer,
		                     created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		event.ID, event.Name, event.Date, event.Time, event.Location, event.Description,
		event.Type, event.Capacity, event.AvailableSeats, event.Status,
		event.Venue, event.Organizer, createdByArg, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	event.Status = model.DeriveStatus(event.Date, r.now(), event.Status)
	return event, nil
}

// GetByID returns a single event with its attendee and waitlist order, or
// ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := loadEventLists(ctx, r.db, e); err != nil {
		return nil, err
	}
	e.Status = model.DeriveStatus(e.Date, r.now(), e.Status)
	return e, nil
}

// List returns events matching the filter, sorted by date ascending.
// Search matches a case-insensitive substring of name, location, or
// description.
func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	sql := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		sql += fmt.Sprintf(` AND (name ILIKE $%d OR location ILIKE $%d OR description ILIKE $%d)`, n, n, n)
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		sql += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if !filter.Day.IsZero() {
		start := time.Date(filter.Day.Year(), filter.Day.Month(), filter.Day.Day(), 0, 0, 0, 0, filter.Day.Location())
		args = append(args, start, start.AddDate(0, 0, 1))
		sql += fmt.Sprintf(` AND date >= $%d AND date < $%d`, len(args)-1, len(args))
	}
	sql += ` ORDER BY date ASC`

	return r.queryEvents(ctx, sql, args...)
}

// ListByTypes returns future, non-cancelled events of the given types,
// sorted by date ascending. An empty type list matches nothing.
func (r *EventRepository) ListByTypes(ctx context.Context, types []model.EventType, from time.Time) ([]model.Event, error) {
	if len(types) == 0 {
		return []model.Event{}, nil
	}
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = string(t)
	}
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE type = ANY($1) AND date >= $2 AND status <> 'cancelled'
		 ORDER BY date ASC`,
		strs, from,
	)
}

func (r *EventRepository) queryEvents(ctx context.Context, sql string, args ...any) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
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

// Update applies an administrative update inside a transaction that locks
// the event row, so capacity changes serialize against concurrent
// registrations. A capacity below the current attendee count fails with
// registration.ErrCapacityBelowAttendance.
func (r *EventRepository) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	e, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	if err := loadEventLists(ctx, tx, e); err != nil {
		return nil, err
	}

	if err := registration.ApplyCapacity(e, req.Capacity); err != nil {
		return nil, err
	}
	e.Name = req.Name
	e.Date = req.Date
	e.Time = req.Time
	e.Location = req.Location
	e.Description = req.Description
	e.Type = model.EventType(req.Type)
	e.Venue = req.Venue
	e.Organizer = req.Organizer
	if req.Cancelled {
		e.Status = model.StatusCancelled
	}
	e.UpdatedAt = r.now().UTC()

	_, err = tx.Exec(ctx,
		`UPDATE events
		 SET name = $2, date = $3, time_of_day = $4, location = $5, description = $6,
		     type = $7, capacity = $8, available_seats = $9, status = $10,
		     venue = $11, organizer = $12, updated_at = $13
		 WHERE id = $1`,
		e.ID, e.Name, e.Date, e.Time, e.Location, e.Description, e.Type,
		e.Capacity, e.AvailableSeats, e.Status, e.Venue, e.Organizer, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	e.Status = model.DeriveStatus(e.Date, r.now(), e.Status)
	return e, nil
}

// Delete removes the event. Attendee, waitlist, and user-side registration
// rows go with it via ON DELETE CASCADE.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
