package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"conduit/internal/domain"
)

const pinColumns = `id, event_id, creator_id, title, description, latitude, longitude, pin_type, color, icon, is_public, created_at, updated_at`

type pinRepository struct {
	DB *sql.DB
}

func NewPinRepository(db *sql.DB) domain.PinRepository {
	return &pinRepository{
		DB: db,
	}
}

func scanPin(s rowScanner) (*domain.Pin, error) {
	p := &domain.Pin{}
	var desc sql.NullString
	if err := s.Scan(&p.ID, &p.EventID, &p.CreatorID, &p.Title, &desc, &p.Latitude, &p.Longitude, &p.PinType, &p.Color, &p.Icon, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = stringPtr(desc)
	return p, nil
}

func (r *pinRepository) Create(ctx context.Context, p *domain.Pin) error {
	query := `
		INSERT INTO event_pins (event_id, creator_id, title, description, latitude, longitude, pin_type, color, icon, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.EventID, p.CreatorID, p.Title, p.Description, p.Latitude, p.Longitude, p.PinType, p.Color, p.Icon, p.IsPublic, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return mapPQError(err, nil)
	}
	return nil
}

func (r *pinRepository) GetByID(ctx context.Context, id string) (*domain.Pin, error) {
	p, err := scanPin(r.DB.QueryRowContext(ctx, `SELECT `+pinColumns+` FROM event_pins WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *pinRepository) ListByEvent(ctx context.Context, eventID string, pinType *domain.PinType) ([]*domain.Pin, error) {
	if pinType != nil {
		query := `SELECT ` + pinColumns + ` FROM event_pins WHERE event_id = $1 AND pin_type = $2 ORDER BY created_at`
		return r.list(ctx, query, eventID, string(*pinType))
	}
	query := `SELECT ` + pinColumns + ` FROM event_pins WHERE event_id = $1 ORDER BY created_at`
	return r.list(ctx, query, eventID)
}

// ListInBounds returns the event's pins inside the box. Boxes crossing the
// antimeridian (West > East) wrap around.
func (r *pinRepository) ListInBounds(ctx context.Context, eventID string, b domain.Bounds) ([]*domain.Pin, error) {
	lngClause := `longitude BETWEEN $4 AND $5`
	if b.West > b.East {
		lngClause = `(longitude >= $4 OR longitude <= $5)`
	}
	query := `
		SELECT ` + pinColumns + `
		FROM event_pins
		WHERE event_id = $1
			AND latitude BETWEEN $2 AND $3
			AND ` + lngClause + `
		ORDER BY created_at
	`
	return r.list(ctx, query, eventID, b.South, b.North, b.West, b.East)
}

func (r *pinRepository) Search(ctx context.Context, eventID, q string) ([]*domain.Pin, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(q)) + "%"
	query := `
		SELECT ` + pinColumns + `
		FROM event_pins
		WHERE event_id = $1 AND (title ILIKE $2 OR description ILIKE $2)
		ORDER BY title
	`
	return r.list(ctx, query, eventID, pattern)
}

func (r *pinRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Pin, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pins := make([]*domain.Pin, 0)
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

func (r *pinRepository) Update(ctx context.Context, id string, upd domain.PinUpdate) (*domain.Pin, error) {
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
	if upd.Latitude != nil {
		add("latitude", *upd.Latitude)
	}
	if upd.Longitude != nil {
		add("longitude", *upd.Longitude)
	}
	if upd.PinType != nil {
		add("pin_type", string(*upd.PinType))
	}
	if upd.Color != nil {
		add("color", *upd.Color)
	}
	if upd.Icon != nil {
		add("icon", *upd.Icon)
	}
	if upd.IsPublic != nil {
		add("is_public", *upd.IsPublic)
	}
	if n == 1 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE event_pins SET %s WHERE id = $%d RETURNING %s`, strings.Join(setClauses, ", "), n, pinColumns)
	p, err := scanPin(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapPQError(err, nil)
	}
	return p, nil
}

func (r *pinRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_pins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
