package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"conduit/internal/domain"
)

const locationColumns = `user_id, latitude, longitude, accuracy, heading, speed, event_id, is_shared, updated_at`

type locationRepository struct {
	DB *sql.DB
}

func NewLocationRepository(db *sql.DB) domain.LocationRepository {
	return &locationRepository{
		DB: db,
	}
}

func scanLocation(s rowScanner) (*domain.Location, error) {
	l := &domain.Location{}
	var accuracy, heading, speed sql.NullFloat64
	var eventID sql.NullString
	if err := s.Scan(&l.UserID, &l.Latitude, &l.Longitude, &accuracy, &heading, &speed, &eventID, &l.IsShared, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Accuracy = floatPtr(accuracy)
	l.Heading = floatPtr(heading)
	l.Speed = floatPtr(speed)
	l.EventID = stringPtr(eventID)
	return l, nil
}

// Upsert overwrites the user's single location row. is_shared is preserved on update.
func (r *locationRepository) Upsert(ctx context.Context, l *domain.Location) error {
	query := `
		INSERT INTO user_locations (user_id, latitude, longitude, accuracy, heading, speed, event_id, is_shared, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			accuracy = EXCLUDED.accuracy,
			heading = EXCLUDED.heading,
			speed = EXCLUDED.speed,
			event_id = EXCLUDED.event_id,
			updated_at = EXCLUDED.updated_at
		RETURNING is_shared
	`
	err := r.DB.QueryRowContext(ctx, query,
		l.UserID, l.Latitude, l.Longitude, l.Accuracy, l.Heading, l.Speed, l.EventID, l.IsShared, l.UpdatedAt,
	).Scan(&l.IsShared)
	if err != nil {
		return mapPQError(err, nil)
	}
	return nil
}

func (r *locationRepository) GetByUserID(ctx context.Context, userID string) (*domain.Location, error) {
	l, err := scanLocation(r.DB.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM user_locations WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *locationRepository) SetSharing(ctx context.Context, userID string, shared bool) (*domain.Location, error) {
	query := `UPDATE user_locations SET is_shared = $1 WHERE user_id = $2 RETURNING ` + locationColumns
	l, err := scanLocation(r.DB.QueryRowContext(ctx, query, shared, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *locationRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]*domain.Location, error) {
	if len(userIDs) == 0 {
		return []*domain.Location{}, nil
	}
	query := `SELECT ` + locationColumns + ` FROM user_locations WHERE user_id = ANY($1)`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	locations := make([]*domain.Location, 0, len(userIDs))
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}
