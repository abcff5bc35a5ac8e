package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"conduit/internal/domain"
)

const agendaColumns = `id, event_id, creator_id, pin_id, title, description, start_time, end_time, location, is_all_day, created_at, updated_at`

type agendaRepository struct {
	DB *sql.DB
}

func NewAgendaRepository(db *sql.DB) domain.AgendaRepository {
	return &agendaRepository{
		DB: db,
	}
}

func scanAgendaItem(s rowScanner) (*domain.AgendaItem, error) {
	a := &domain.AgendaItem{}
	var pinID, desc, location sql.NullString
	var endTime sql.NullTime
	if err := s.Scan(&a.ID, &a.EventID, &a.CreatorID, &pinID, &a.Title, &desc, &a.StartTime, &endTime, &location, &a.IsAllDay, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.PinID = stringPtr(pinID)
	a.Description = stringPtr(desc)
	a.EndTime = timePtr(endTime)
	a.Location = stringPtr(location)
	return a, nil
}

func (r *agendaRepository) Create(ctx context.Context, a *domain.AgendaItem) error {
	query := `
		INSERT INTO agenda_items (event_id, creator_id, pin_id, title, description, start_time, end_time, location, is_all_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		a.EventID, a.CreatorID, a.PinID, a.Title, a.Description, a.StartTime, a.EndTime, a.Location, a.IsAllDay, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return mapPQError(err, nil)
	}
	return nil
}

func (r *agendaRepository) GetByID(ctx context.Context, id string) (*domain.AgendaItem, error) {
	a, err := scanAgendaItem(r.DB.QueryRowContext(ctx, `SELECT `+agendaColumns+` FROM agenda_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *agendaRepository) ListByEvents(ctx context.Context, eventIDs []string, tr domain.TimeRange) ([]*domain.AgendaItem, error) {
	if len(eventIDs) == 0 {
		return []*domain.AgendaItem{}, nil
	}
	query := `
		SELECT ` + agendaColumns + `
		FROM agenda_items
		WHERE event_id = ANY($1)
			AND ($2::timestamptz IS NULL OR start_time >= $2)
			AND ($3::timestamptz IS NULL OR start_time <= $3)
		ORDER BY start_time
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(eventIDs), tr.From, tr.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*domain.AgendaItem, 0)
	for rows.Next() {
		a, err := scanAgendaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *agendaRepository) Update(ctx context.Context, id string, upd domain.AgendaItemUpdate) (*domain.AgendaItem, error) {
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
	if upd.StartTime != nil {
		add("start_time", *upd.StartTime)
	}
	if upd.EndTime != nil {
		add("end_time", *upd.EndTime)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.IsAllDay != nil {
		add("is_all_day", *upd.IsAllDay)
	}
	if upd.PinID != nil {
		// An empty pin id detaches the item from its pin.
		if *upd.PinID == "" {
			add("pin_id", nil)
		} else {
			add("pin_id", *upd.PinID)
		}
	}
	if n == 1 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE agenda_items SET %s WHERE id = $%d RETURNING %s`, strings.Join(setClauses, ", "), n, agendaColumns)
	a, err := scanAgendaItem(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPQError(err, nil)
	}
	return a, nil
}

func (r *agendaRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM agenda_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
