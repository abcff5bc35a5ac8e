package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"conduit/internal/domain"
)

const eventColumns = `id, title, description, start_date, end_date, location, location_lat, location_lng,
	is_private, status, creator_id, participant_count, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var desc, location sql.NullString
	var endDate sql.NullTime
	var lat, lng sql.NullFloat64
	err := s.Scan(
		&e.ID, &e.Title, &desc, &e.StartDate, &endDate, &location, &lat, &lng,
		&e.IsPrivate, &e.Status, &e.CreatorID, &e.ParticipantCount, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Description = stringPtr(desc)
	e.EndDate = timePtr(endDate)
	e.Location = stringPtr(location)
	e.LocationLat = floatPtr(lat)
	e.LocationLng = floatPtr(lng)
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (title, description, start_date, end_date, location, location_lat, location_lng,
				is_private, status, creator_id, participant_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, query,
			e.Title, e.Description, e.StartDate, e.EndDate, e.Location, e.LocationLat, e.LocationLng,
			e.IsPrivate, e.Status, e.CreatorID, e.CreatedAt, e.UpdatedAt,
		).Scan(&e.ID)
		if err != nil {
			return mapPQError(err, nil)
		}
		if _, err := applyMembership(ctx, tx, e.ID, e.CreatorID, domain.MembershipRoleCreator, nil, true); err != nil {
			return fmt.Errorf("add creator membership: %w", err)
		}
		e.ParticipantCount = 1
		return nil
	})
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

const visibleEventsWhere = `
	status <> 'cancelled' AND (NOT is_private OR EXISTS (
		SELECT 1 FROM user_events ue
		WHERE ue.event_id = events.id AND ue.user_id = $1 AND ue.is_active
	))`

func (r *eventRepository) ListVisible(ctx context.Context, callerID string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM events WHERE` + visibleEventsWhere
	if err := r.DB.QueryRowContext(ctx, countQuery, callerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE` + visibleEventsWhere + `
		ORDER BY start_date DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, callerID, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events, err := collectEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id IN (SELECT event_id FROM user_events WHERE user_id = $1 AND is_active)
		ORDER BY start_date DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.StartDate != nil {
		add("start_date", *upd.StartDate)
	}
	if upd.EndDate != nil {
		add("end_date", *upd.EndDate)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.LocationLat != nil {
		add("location_lat", *upd.LocationLat)
	}
	if upd.LocationLng != nil {
		add("location_lng", *upd.LocationLng)
	}
	if upd.IsPrivate != nil {
		add("is_private", *upd.IsPrivate)
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPQError(err, nil)
	}
	return e, nil
}

func (r *eventRepository) Recount(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE events
		SET participant_count = (SELECT COUNT(*) FROM user_events WHERE event_id = $1 AND is_active)
		WHERE id = $1
		RETURNING participant_count
	`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}
